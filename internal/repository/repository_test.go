package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/teaming"
)

func TestJSONColumnRoundTrip(t *testing.T) {
	attributes := []domain.AttributeDefinition{
		{Name: "时区", Kind: teaming.KindTimezone},
		{Name: "经验", Kind: teaming.KindOrdered, Options: []string{"低", "高"}},
	}
	encoded, err := jsonb(attributes)
	require.NoError(t, err)

	var decoded []domain.AttributeDefinition
	require.NoError(t, jsonColumn{&decoded}.Scan([]byte(encoded)))
	require.Equal(t, attributes, decoded)

	var sizes []int
	require.NoError(t, jsonColumn{&sizes}.Scan("[3,3,2]"))
	require.Equal(t, []int{3, 3, 2}, sizes)
}

func TestJSONColumnNullAndBadTypes(t *testing.T) {
	sections := []string{"1班"}
	require.NoError(t, jsonColumn{&sections}.Scan(nil))
	require.Equal(t, []string{"1班"}, sections)

	require.Error(t, jsonColumn{&sections}.Scan(42))
	require.Error(t, jsonColumn{&sections}.Scan([]byte("{")))
}

func TestStudentArgsOrder(t *testing.T) {
	student := &domain.StudentRecord{
		RosterID:      1,
		StudentNumber: "001",
		Section:       "1班",
		Genders:       []teaming.Gender{teaming.GenderWoman},
		URM:           true,
		Attributes:    [][]int{{2}},
		RequiredWith:  []string{"002"},
	}

	args, err := studentArgs(student)
	require.NoError(t, err)
	require.Len(t, args, 12)
	require.Equal(t, `["woman"]`, args[5])
	require.Equal(t, true, args[6])
	require.Equal(t, `[[2]]`, args[7])
	require.Equal(t, `null`, args[8])
	require.Equal(t, `["002"]`, args[9])
}

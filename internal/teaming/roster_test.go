package teaming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRosterCalibratesKnownValues(t *testing.T) {
	r, err := NewRoster(orderedStudents(1, 3, Unknown, 3), 1)
	require.NoError(t, err)
	require.Equal(t, 4, r.Len())
	require.Equal(t, attributeRange{min: 1, max: 3, unique: 2}, r.ranges[0])

	idx, ok := r.IndexOf(3)
	require.True(t, ok)
	require.Equal(t, 2, idx)
}

func TestNewRosterResolvesConstraints(t *testing.T) {
	students := orderedStudents(1, 2, 3)
	students[0].RequiredWith = []int64{2, 2, 1, 99}
	students[1].PreventedWith = []int64{3}

	r, err := NewRoster(students, 1)
	require.NoError(t, err)
	require.Equal(t, []int{1}, r.required[0])
	require.Equal(t, []int{2}, r.prevented[1])
	require.True(t, r.hasRequired())
	require.False(t, r.hasRequested())
}

func TestNewRosterRejectsInvalidInput(t *testing.T) {
	var cfgErr *ConfigurationError

	_, err := NewRoster(nil, 1)
	require.ErrorAs(t, err, &cfgErr)
	require.ErrorIs(t, err, ErrEmptyRoster)

	students := orderedStudents(1, 2)
	students[1].ID = students[0].ID
	_, err = NewRoster(students, 1)
	require.ErrorAs(t, err, &cfgErr)

	var lengthErr *AttributeLengthError
	_, err = NewRoster(orderedStudents(1, 2), 2)
	require.ErrorAs(t, err, &lengthErr)
	require.Equal(t, int64(1), lengthErr.StudentID)
	require.Equal(t, 2, lengthErr.Want)
}

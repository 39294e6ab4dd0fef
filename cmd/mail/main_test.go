package main

import (
	"encoding/json"
	"html/template"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/team-former/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

func testTemplates(t *testing.T) map[string]*template.Template {
	t.Helper()
	return map[string]*template.Template{
		domain.MailTypeCreateUser:      template.Must(template.New("user").Parse(`{{.Username}}`)),
		domain.MailTypeTeamingComplete: template.Must(template.New("teaming").Parse(`{{.JobID}} {{.NumTeams}}`)),
	}
}

func TestBuildMail(t *testing.T) {
	body, err := json.Marshal(domain.MailMessage{
		Type: domain.MailTypeTeamingComplete,
		To:   "instructor@example.com",
		Data: domain.TeamingCompleteMailData{JobID: 42, NumTeams: 5},
	})
	require.NoError(t, err)

	m, err := buildMail("noreply@example.com", testTemplates(t), body)
	require.NoError(t, err)

	to := m.GetToString()
	require.Len(t, to, 1)
	require.Contains(t, to[0], "instructor@example.com")
	require.Equal(t, []string{"ECNC 组队系统 - 分组任务结束"}, m.GetGenHeader(mail.HeaderSubject))
}

func TestBuildMailRejectsBadMessages(t *testing.T) {
	templates := testTemplates(t)

	_, err := buildMail("noreply@example.com", templates, []byte(`{"type":"reset_password","to":"a@example.com","data":{}}`))
	require.ErrorContains(t, err, "不支持的邮件类型")

	_, err = buildMail("noreply@example.com", templates, []byte(`not json`))
	require.Error(t, err)

	_, err = buildMail("noreply@example.com", templates, []byte(`{"type":"create_user","to":"not an address","data":{}}`))
	require.Error(t, err)
}

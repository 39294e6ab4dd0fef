package domain

const (
	MailTypeCreateUser      = "create_user"
	MailTypeTeamingComplete = "teaming_complete"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type TeamingCompleteMailData struct {
	FullName    string           `json:"fullName"`
	RosterName  string           `json:"rosterName"`
	Section     string           `json:"section"`
	JobID       int64            `json:"jobID"`
	Status      TeamingJobStatus `json:"status"`
	Message     string           `json:"message"`
	NumTeams    int              `json:"numTeams"`
	Fitness     float64          `json:"fitness"`
	Generations int              `json:"generations"`
}

package model

// SMTPConfig holds the outbound mail settings tested from the admin screen.
type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	Secure    bool   `json:"secure"`
}

// SMTPTestResult is the outcome of a connection probe: a success flag and
// the human-readable session log.
type SMTPTestResult struct {
	Success bool   `json:"success"`
	Log     string `json:"log"`
}

package schema

// SystemSignInAttemptTable represents the 'system.signinattempt' table
type SystemSignInAttemptTable struct {
	Table             string
	ID                string
	Action            string
	Identity          string
	SecondaryIdentity string
	IPAddress         string
	UserAgent         string
	Outcome           string
	CreatedAt         string
}

var SystemSignInAttempt = SystemSignInAttemptTable{
	Table:             "system.signinattempt",
	ID:                "id",
	Action:            "action",
	Identity:          "identity",
	SecondaryIdentity: "secondaryidentity",
	IPAddress:         "ipaddress",
	UserAgent:         "useragent",
	Outcome:           "outcome",
	CreatedAt:         "createdat",
}

package domain

// Account is a member of the organization as listed by the roster.
type Account struct {
	ID   string
	Name string
}

// Label renders the account for admin-facing messages.
func (a Account) Label() string {
	if a.Name == "" {
		return a.ID
	}
	return a.Name + " (" + a.ID + ")"
}

// Profile holds the fields the onboarding policy inspects. It is fetched
// fresh every time and never cached.
type Profile struct {
	ID                  string
	Name                string
	FirstName           string
	CoverURL            string // empty when no cover photo is set
	PictureIsSilhouette bool
	Department          string
	Title               string
	ManagerIDs          []string
}

// RosterPage is one page of the membership listing. NextCursor is empty when
// the platform returned none.
type RosterPage struct {
	Accounts   []Account
	NextCursor string
}

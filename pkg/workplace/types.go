package workplace

// Profile is the subset of a member's profile steward inspects.
type Profile struct {
	ID                  string
	Name                string
	FirstName           string
	CoverURL            string
	PictureIsSilhouette bool
	Department          string
	Title               string
	ManagerIDs          []string
}

// Member is one entry of the community member list.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MembersPage is one page of the community member list. NextCursor is empty
// when the API did not return an "after" cursor.
type MembersPage struct {
	Members    []Member
	NextCursor string
}

// SendResult is returned by the Send API.
type SendResult struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

type profileWire struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FirstName  string `json:"first_name"`
	Department string `json:"department"`
	Title      string `json:"title"`
	Cover      *struct {
		ID     string `json:"id"`
		Source string `json:"source"`
	} `json:"cover"`
	Picture *struct {
		Data struct {
			IsSilhouette bool   `json:"is_silhouette"`
			URL          string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	Managers *struct {
		Data []Member `json:"data"`
	} `json:"managers"`
}

func (w profileWire) profile() Profile {
	p := Profile{
		ID:         w.ID,
		Name:       w.Name,
		FirstName:  w.FirstName,
		Department: w.Department,
		Title:      w.Title,
		// No picture edge at all means the default avatar.
		PictureIsSilhouette: true,
	}
	if w.Cover != nil {
		p.CoverURL = w.Cover.Source
		if p.CoverURL == "" {
			p.CoverURL = w.Cover.ID
		}
	}
	if w.Picture != nil {
		p.PictureIsSilhouette = w.Picture.Data.IsSilhouette
	}
	if w.Managers != nil {
		for _, m := range w.Managers.Data {
			if m.ID != "" {
				p.ManagerIDs = append(p.ManagerIDs, m.ID)
			}
		}
	}
	return p
}

type membersWire struct {
	Data   []Member `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

type recipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient recipient       `json:"recipient"`
	Message   outboundMessage `json:"message"`
}

type outboundMessage struct {
	Text       string      `json:"text,omitempty"`
	Attachment *attachment `json:"attachment,omitempty"`
}

type attachment struct {
	Type    string          `json:"type"`
	Payload templatePayload `json:"payload"`
}

type templatePayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text"`
	Buttons      []button `json:"buttons"`
}

type button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

package resource

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/safetyops/scnuke/internal/paginate"
)

// ParsePage splits a listing response body for kind k into raw items
// plus whatever continuation state the envelope carried.
func ParsePage(k Kind, body []byte) (*paginate.Page, error) {
	var page paginate.Page
	var err error
	switch k {
	case Actions:
		var env struct {
			Actions []json.RawMessage `json:"actions"`
		}
		err = json.Unmarshal(body, &env)
		page.Items = env.Actions
	case Issues, OshaCases:
		var env struct {
			Results       []json.RawMessage `json:"results"`
			NextPageToken string            `json:"next_page_token"`
		}
		err = json.Unmarshal(body, &env)
		page.Items = env.Results
		page.NextToken = env.NextPageToken
	case Inspections, Templates:
		var env struct {
			Data     []json.RawMessage `json:"data"`
			Metadata struct {
				NextPage string `json:"next_page"`
			} `json:"metadata"`
		}
		err = json.Unmarshal(body, &env)
		page.Items = env.Data
		page.NextLink = env.Metadata.NextPage
	case Assets:
		var env struct {
			Assets        []json.RawMessage `json:"assets"`
			NextPageToken string            `json:"next_page_token"`
		}
		err = json.Unmarshal(body, &env)
		page.Items = env.Assets
		page.NextToken = env.NextPageToken
	case Credentials:
		var env struct {
			Versions      []json.RawMessage `json:"latest_document_versions"`
			NextPageToken string            `json:"next_page_token"`
		}
		err = json.Unmarshal(body, &env)
		page.Items = env.Versions
		page.NextToken = env.NextPageToken
	case Companies:
		var env struct {
			Companies     []json.RawMessage `json:"contractor_company_list"`
			NextPageToken string            `json:"next_page_token"`
		}
		err = json.Unmarshal(body, &env)
		page.Items = env.Companies
		page.NextToken = env.NextPageToken
	case Sites:
		var env struct {
			Folders       []json.RawMessage `json:"folders"`
			NextPageToken string            `json:"next_page_token"`
		}
		err = json.Unmarshal(body, &env)
		page.Items = env.Folders
		page.NextToken = env.NextPageToken
	default:
		return nil, fmt.Errorf("unknown resource kind %q", k)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s listing: %w", k, err)
	}
	return &page, nil
}

// Extract converts one raw listing entry into a deletable Item.
// ok=false means the entry carries nothing deletable (no identifier at
// all, or a folder already marked deleted) and is skipped without
// counting toward any stat.
func Extract(k Kind, raw json.RawMessage) (Item, bool) {
	switch k {
	case Actions:
		return extractAction(raw)
	case Issues:
		return extractStringID(raw, "investigation_id")
	case Inspections, Templates, Assets:
		return extractStringID(raw, "id")
	case Credentials:
		return extractCredential(raw)
	case Companies:
		return extractCompany(raw)
	case OshaCases:
		return extractOshaCase(raw)
	case Sites:
		return extractFolder(raw)
	}
	return Item{}, false
}

func extractStringID(raw json.RawMessage, field string) (Item, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Item{}, false
	}
	id := stringField(m, field)
	if id == "" {
		return Item{}, false
	}
	return Item{ID: id}, true
}

func extractAction(raw json.RawMessage) (Item, bool) {
	var entry struct {
		TaskID string `json:"task_id"`
		ID     string `json:"id"`
		Task   struct {
			TaskID string `json:"task_id"`
		} `json:"task"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Item{}, false
	}
	id := entry.Task.TaskID
	if id == "" {
		id = entry.TaskID
	}
	if id == "" {
		id = entry.ID
	}
	if id == "" {
		return Item{}, false
	}
	return Item{ID: id}, true
}

func extractCredential(raw json.RawMessage) (Item, bool) {
	var entry struct {
		DocumentID     string `json:"document_id"`
		DocumentTypeID string `json:"document_type_id"`
		DocumentType   struct {
			ID string `json:"id"`
		} `json:"document_type"`
		SubjectUserID string `json:"subject_user_id"`
		SubjectUser   struct {
			ID     string `json:"id"`
			UserID string `json:"user_id"`
		} `json:"subject_user"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Item{}, false
	}

	docType := entry.DocumentTypeID
	if docType == "" {
		docType = entry.DocumentType.ID
	}
	userID := entry.SubjectUserID
	if userID == "" {
		userID = entry.SubjectUser.ID
	}
	if userID == "" {
		userID = entry.SubjectUser.UserID
	}

	if entry.DocumentID == "" || docType == "" || userID == "" {
		return Item{
			ID: entry.DocumentID,
			Err: fmt.Sprintf("credential missing identifiers: doc=%q, type=%q, user=%q",
				entry.DocumentID, docType, userID),
		}, true
	}

	q := url.Values{}
	q.Set("document_id", entry.DocumentID)
	q.Set("document_type_id", docType)
	q.Set("user_id", userID)
	return Item{ID: entry.DocumentID, Query: q}, true
}

func extractCompany(raw json.RawMessage) (Item, bool) {
	var entry struct {
		CompanyID     string `json:"company_id"`
		CompanyTypeID string `json:"company_type_id"`
		CompanyType   struct {
			ID string `json:"id"`
		} `json:"company_type"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Item{}, false
	}
	if entry.CompanyID == "" {
		return Item{}, false
	}
	q := url.Values{}
	q.Set("company_id", entry.CompanyID)
	// company_type_id is optional; the backend resolves the default
	// type when it is absent.
	typeID := entry.CompanyType.ID
	if typeID == "" {
		typeID = entry.CompanyTypeID
	}
	if typeID != "" {
		q.Set("company_type_id", typeID)
	}
	return Item{ID: entry.CompanyID, Query: q}, true
}

func extractOshaCase(raw json.RawMessage) (Item, bool) {
	var entry struct {
		CaseID string `json:"case_id"`
		ID     string `json:"id"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Item{}, false
	}
	id := entry.CaseID
	if id == "" {
		id = entry.ID
	}
	if id == "" {
		return Item{}, false
	}
	return Item{ID: id}, true
}

func extractFolder(raw json.RawMessage) (Item, bool) {
	var entry struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
		Folder  struct {
			ID      string `json:"id"`
			Deleted bool   `json:"deleted"`
		} `json:"folder"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Item{}, false
	}
	id, deleted := entry.Folder.ID, entry.Folder.Deleted
	if id == "" {
		id, deleted = entry.ID, entry.Deleted
	}
	// The search endpoint can return folders already soft-deleted;
	// issuing another delete for those only produces noise.
	if id == "" || deleted {
		return Item{}, false
	}
	return Item{ID: id}, true
}

func stringField(m map[string]json.RawMessage, field string) string {
	raw, ok := m[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

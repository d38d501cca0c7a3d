// Package models describes the credential metadata document and the catalog
// of credential types an issuer can pick from.
package models

import (
	"strings"
	"time"

	dErrors "quorumcred/pkg/domain-errors"
)

// Document is the JSON stored behind a credential's metadata reference.
type Document struct {
	Name        string     `json:"name" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Attributes  Attributes `json:"attributes"`
}

type Attributes struct {
	IssueDate time.Time `json:"issueDate"`
	Template  string    `json:"template,omitempty"`
}

// CredentialType is one entry of the issuance catalog.
type CredentialType struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Template string `json:"template"`
}

// Catalog lists the credential types offered to issuers, in display order.
var Catalog = []CredentialType{
	{Value: "btech", Label: "B.Tech Certificate", Template: "academic"},
	{Value: "mtech", Label: "M.Tech Certificate", Template: "academic"},
	{Value: "driving", Label: "Driving License", Template: "license"},
	{Value: "course", Label: "Online Course Certificate", Template: "course"},
	{Value: "achievement", Label: "Achievement Award", Template: "award"},
}

// LookupType finds a catalog entry by value, case-insensitively.
func LookupType(value string) (CredentialType, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, t := range Catalog {
		if t.Value == value {
			return t, true
		}
	}
	return CredentialType{}, false
}

// NewDocument builds the document for a catalog type. The name is the type's
// label; issueDate is issuedAt in UTC.
func NewDocument(typeValue, description string, issuedAt time.Time) (*Document, error) {
	t, ok := LookupType(typeValue)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "unknown credential type: "+typeValue)
	}
	return &Document{
		Name:        t.Label,
		Description: strings.TrimSpace(description),
		Attributes: Attributes{
			IssueDate: issuedAt.UTC(),
			Template:  t.Template,
		},
	}, nil
}

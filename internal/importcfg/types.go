// Package importcfg loads, defaults, compiles and validates the import mapping
// document that drives a board import.
package importcfg

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/danielolaszy/monday-import/pkg/models"
)

// DefaultKey is the wildcard key of a value table.
const DefaultKey = "_default"

// ImportConfig is the fully decoded mapping document.
type ImportConfig struct {
	Source          SourceConfig  `json:"source"`
	Target          TargetConfig  `json:"target"`
	DataModel       DataModel     `json:"dataModel"`
	FieldMappings   FieldMappings `json:"fieldMappings"`
	StatusMapping   ValueMap      `json:"statusMapping,omitempty"`
	PriorityMapping ValueMap      `json:"priorityMapping,omitempty"`
	Links           LinksConfig   `json:"links"`
	Updates         UpdatesConfig `json:"updates"`
	Fallbacks       Fallbacks     `json:"fallbacks"`
	Options         Options       `json:"options"`

	// dir is the directory of the loaded file, used to resolve relative paths
	dir string
}

// SourceConfig describes the board export.
type SourceConfig struct {
	// Sheet is the main sheet name; empty selects the first sheet
	Sheet string `json:"sheet,omitempty"`
	// IDColumn holds the source item identifier
	IDColumn string `json:"idColumn" validate:"required"`
	// NameColumn holds the item name, used to match updates when set
	NameColumn string `json:"nameColumn,omitempty"`
}

// TargetConfig describes the Linear workspace to import into.
type TargetConfig struct {
	TeamID string `json:"teamId" validate:"required"`
	APIURL string `json:"apiUrl,omitempty" validate:"omitempty,url"`
}

// DataModel decides what each row becomes.
type DataModel struct {
	Items ItemsModel `json:"items"`
}

// ItemsModel configures the entity built per row and its sub-items.
type ItemsModel struct {
	ImportAs models.ItemKind `json:"importAs" validate:"required,oneof=project issue"`
	Subitems SubitemsConfig  `json:"subitems"`
}

// SubitemsConfig splits one column into child issues.
type SubitemsConfig struct {
	Enabled   bool   `json:"enabled"`
	Column    string `json:"column,omitempty" validate:"required_if=Enabled true"`
	Delimiter string `json:"delimiter,omitempty"`
}

// FieldMappings holds one rule per target field, per entity type.
type FieldMappings struct {
	Project map[string]FieldMapping `json:"project,omitempty"`
	Issue   map[string]FieldMapping `json:"issue,omitempty"`
}

// For returns the mapping table of the given entity type.
func (f FieldMappings) For(kind models.ItemKind) map[string]FieldMapping {
	if kind == models.KindProject {
		return f.Project
	}
	return f.Issue
}

// FieldMapping is a single-source rule (Source, Transform, Default) or a
// multi-source template rule (Sources, Template). Exactly one shape is valid.
type FieldMapping struct {
	Source    string   `json:"source,omitempty"`
	Transform string   `json:"transform,omitempty"`
	Default   *Scalar  `json:"default,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Template  string   `json:"template,omitempty"`
	Required  bool     `json:"required,omitempty"`
	Delimiter string   `json:"delimiter,omitempty"`
}

// IsTemplate reports whether the mapping uses the multi-source shape.
func (m FieldMapping) IsTemplate() bool {
	return len(m.Sources) > 0 || m.Template != ""
}

// IsSingle reports whether the mapping uses the single-source shape.
func (m FieldMapping) IsSingle() bool {
	return m.Source != "" || m.Transform != ""
}

// Columns lists every column the mapping reads.
func (m FieldMapping) Columns() []string {
	if m.IsTemplate() {
		return m.Sources
	}
	if m.Source == "" {
		return nil
	}
	return []string{m.Source}
}

// LinksConfig lists columns extracted as hyperlink attachments.
type LinksConfig struct {
	Enabled bool     `json:"enabled"`
	Columns []string `json:"columns,omitempty"`
}

// UpdatesConfig wires the historical updates sheet.
type UpdatesConfig struct {
	Enabled        bool          `json:"enabled"`
	Sheet          string        `json:"sheet,omitempty"`
	Columns        UpdateColumns `json:"columns"`
	Order          SortOrder     `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
	AuthorFallback AuthorMode    `json:"authorFallback,omitempty" validate:"omitempty,oneof=prepend append skip"`
}

// UpdateColumns names the four columns of the updates sheet.
type UpdateColumns struct {
	Link    string `json:"link,omitempty"`
	Content string `json:"content,omitempty"`
	Author  string `json:"author,omitempty"`
	Date    string `json:"date,omitempty"`
}

// SortOrder orders updates by date.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// AuthorMode places the "[Originally by X]" marker for unresolved authors.
type AuthorMode string

const (
	AuthorPrepend AuthorMode = "prepend"
	AuthorAppend  AuthorMode = "append"
	AuthorSkip    AuthorMode = "skip"
)

// Fallbacks are static name tables consulted after catalog matching fails.
// Values may be a catalog name or a raw identifier.
type Fallbacks struct {
	Users           ValueMap `json:"users,omitempty"`
	States          ValueMap `json:"states,omitempty"`
	ProjectStatuses ValueMap `json:"projectStatuses,omitempty"`
	Labels          ValueMap `json:"labels,omitempty"`
}

// Options are behavioral flags.
type Options struct {
	ContinueOnError     bool   `json:"continueOnError"`
	CreateMissingLabels bool   `json:"createMissingLabels"`
	SkipEmptyRows       bool   `json:"skipEmptyRows"`
	UserMappingFile     string `json:"userMappingFile,omitempty"`
}

// ValueMap is a string table whose document values may be any scalar.
type ValueMap map[string]string

// UnmarshalJSON accepts string, number and boolean values.
func (m *ValueMap) UnmarshalJSON(data []byte) error {
	var raw map[string]Scalar
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ValueMap, len(raw))
	for k, v := range raw {
		out[k] = string(v)
	}
	*m = out
	return nil
}

// Scalar is a document value read as a string.
type Scalar string

// UnmarshalJSON accepts string, number and boolean values.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = Scalar(t)
	case float64:
		*s = Scalar(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = Scalar(strconv.FormatBool(t))
	case nil:
		*s = ""
	default:
		return fmt.Errorf("expected a scalar value, got %s", string(data))
	}
	return nil
}

// Dir returns the directory the document was loaded from.
func (c *ImportConfig) Dir() string {
	return c.dir
}

// Mappings returns the field mapping table for the configured importAs mode.
func (c *ImportConfig) Mappings() map[string]FieldMapping {
	return c.FieldMappings.For(c.DataModel.Items.ImportAs)
}

// Package resolver maps human-readable names of users, labels, workflow
// states and project statuses to Linear identifiers for one import run.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/pkg/models"
)

// Catalog is the read side of the target system.
type Catalog interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListLabels(ctx context.Context, teamID string) ([]models.Named, error)
	ListWorkflowStates(ctx context.Context, teamID string) ([]models.Named, error)
	ListProjectStatuses(ctx context.Context) ([]models.Named, error)
}

// Kind is one of the four resolution tables.
type Kind string

const (
	KindUser          Kind = "user"
	KindLabel         Kind = "label"
	KindState         Kind = "state"
	KindProjectStatus Kind = "projectStatus"
)

type outcome struct {
	id string
	ok bool
}

// table is one name to identifier lookup with its per-run memo.
type table struct {
	exact      map[string]string
	normalized map[string]string
	ids        map[string]bool
	fallback   importcfg.ValueMap
	memo       map[string]outcome
	misses     []string
}

func newTable(fallback importcfg.ValueMap) *table {
	return &table{
		exact:      make(map[string]string),
		normalized: make(map[string]string),
		ids:        make(map[string]bool),
		fallback:   fallback,
		memo:       make(map[string]outcome),
	}
}

func (t *table) add(name, id string) {
	if name == "" || id == "" {
		return
	}
	t.ids[id] = true
	if _, ok := t.exact[fold(name)]; !ok {
		t.exact[fold(name)] = id
	}
	if key := fold(Normalize(name)); key != "" {
		if _, ok := t.normalized[key]; !ok {
			t.normalized[key] = id
		}
	}
}

// match runs the catalog steps of the policy: exact case-insensitive name,
// then normalized name.
func (t *table) match(name string) (string, bool) {
	if id, ok := t.exact[fold(name)]; ok {
		return id, true
	}
	if id, ok := t.normalized[fold(Normalize(name))]; ok {
		return id, true
	}
	return "", false
}

func (t *table) resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if o, ok := t.memo[name]; ok {
		return o.id, o.ok
	}

	id, ok := t.match(name)
	if !ok {
		id, ok = t.viaFallback(name)
	}
	t.memo[name] = outcome{id: id, ok: ok}
	if !ok {
		t.misses = append(t.misses, name)
	}
	return id, ok
}

// viaFallback consults the static table. Its value is either a catalog name
// or a raw identifier.
func (t *table) viaFallback(name string) (string, bool) {
	target, ok := t.fallback[name]
	if !ok {
		for k, v := range t.fallback {
			if fold(k) == fold(name) {
				target, ok = v, true
				break
			}
		}
	}
	target = strings.TrimSpace(target)
	if !ok || target == "" {
		return "", false
	}
	if t.ids[target] {
		return target, true
	}
	if id, found := t.match(target); found {
		return id, true
	}
	if _, err := uuid.Parse(target); err == nil {
		return target, true
	}
	return "", false
}

// Resolver holds the resolution tables of one import run. It is not safe for
// concurrent use; the importer resolves sequentially.
type Resolver struct {
	catalog Catalog
	teamID  string
	tables  map[Kind]*table
	loaded  bool
}

// New creates an empty resolver. catalog may be nil, in which case only the
// static fallback tables are consulted.
func New(catalog Catalog, teamID string, fallbacks importcfg.Fallbacks) *Resolver {
	return &Resolver{
		catalog: catalog,
		teamID:  teamID,
		tables: map[Kind]*table{
			KindUser:          newTable(fallbacks.Users),
			KindLabel:         newTable(fallbacks.Labels),
			KindState:         newTable(fallbacks.States),
			KindProjectStatus: newTable(fallbacks.ProjectStatuses),
		},
	}
}

// Load queries the catalog once. Calling it again is a no-op.
func (r *Resolver) Load(ctx context.Context) error {
	if r.loaded || r.catalog == nil {
		r.loaded = true
		return nil
	}

	users, err := r.catalog.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		t := r.tables[KindUser]
		t.add(u.Name, u.ID)
		t.add(u.DisplayName, u.ID)
		t.add(u.Email, u.ID)
		if local, _, found := strings.Cut(u.Email, "@"); found {
			if _, taken := t.normalized[fold(Normalize(local))]; !taken {
				t.normalized[fold(Normalize(local))] = u.ID
			}
		}
	}

	labels, err := r.catalog.ListLabels(ctx, r.teamID)
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}
	for _, l := range labels {
		r.tables[KindLabel].add(l.Name, l.ID)
	}

	states, err := r.catalog.ListWorkflowStates(ctx, r.teamID)
	if err != nil {
		return fmt.Errorf("failed to load workflow states: %w", err)
	}
	for _, s := range states {
		r.tables[KindState].add(s.Name, s.ID)
	}

	statuses, err := r.catalog.ListProjectStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load project statuses: %w", err)
	}
	for _, s := range statuses {
		r.tables[KindProjectStatus].add(s.Name, s.ID)
	}

	r.loaded = true
	logging.Info("loaded reference data",
		"users", len(users),
		"labels", len(labels),
		"states", len(states),
		"project_statuses", len(statuses))
	return nil
}

// ResolveUserID maps a user name, display name or email to a user id.
func (r *Resolver) ResolveUserID(name string) (string, bool) {
	return r.tables[KindUser].resolve(name)
}

// ResolveIssueStateID maps a workflow state name to its id.
func (r *Resolver) ResolveIssueStateID(name string) (string, bool) {
	return r.tables[KindState].resolve(name)
}

// ResolveProjectStatusID maps a project status name to its id.
func (r *Resolver) ResolveProjectStatusID(name string) (string, bool) {
	return r.tables[KindProjectStatus].resolve(name)
}

// ResolveLabelID maps a label name to its id.
func (r *Resolver) ResolveLabelID(name string) (string, bool) {
	return r.tables[KindLabel].resolve(name)
}

// RegisterLabel records a label created during the run so later rows reuse it.
func (r *Resolver) RegisterLabel(name, id string) {
	t := r.tables[KindLabel]
	t.add(name, id)
	name = strings.TrimSpace(name)
	delete(t.memo, name)
	for i, m := range t.misses {
		if m == name {
			t.misses = append(t.misses[:i], t.misses[i+1:]...)
			break
		}
	}
}

// Misses returns the distinct names that could not be resolved, per kind,
// sorted.
func (r *Resolver) Misses() map[Kind][]string {
	out := make(map[Kind][]string)
	for kind, t := range r.tables {
		if len(t.misses) == 0 {
			continue
		}
		names := append([]string(nil), t.misses...)
		sort.Strings(names)
		out[kind] = names
	}
	return out
}

// Normalize turns "in_progress" or "IN  PROGRESS" into "In Progress".
func Normalize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

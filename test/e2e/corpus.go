package e2e

import (
	"fmt"
	"os"
	"path/filepath"
)

// Document is one corpus entry. Phrase appears in Content and is the query
// that must retrieve it.
type Document struct {
	Name     string
	Category string
	Ext      string
	Phrase   string
	Content  string
}

// RelPath is the document's path relative to the corpus root.
func (d Document) RelPath() string {
	return filepath.Join(d.Category, d.Name+d.Ext)
}

var topics = []struct {
	name     string
	category string
	phrase   string
	body     string
}{
	{"adkar", "frameworks", "awareness desire knowledge ability reinforcement",
		"The Prosci model lists five individual outcomes in order."},
	{"kotter", "frameworks", "create urgency and build a guiding coalition",
		"Kotter's eight steps begin before any plan is announced."},
	{"lewin", "frameworks", "unfreeze change refreeze",
		"Lewin describes three phases for moving a group from one equilibrium to another."},
	{"bridges", "frameworks", "endings neutral zone new beginnings",
		"Bridges separates the external change from the internal transition people go through."},
	{"mckinsey", "frameworks", "strategy structure systems shared values",
		"The seven S model checks whether hard and soft elements of an organization stay aligned."},
	{"erp_rollout", "case_studies", "warehouse staff resisted the new inventory scanners",
		"Adoption recovered after floor supervisors ran hands-on sessions every shift."},
	{"bank_merger", "case_studies", "two branch networks merged their customer systems",
		"Weekly town halls kept rumours down during the integration year."},
	{"hospital_ehr", "case_studies", "nurses piloted electronic health records on one ward",
		"Super users on each shift answered questions at the bedside."},
	{"sponsorship", "best_practices", "active and visible executive sponsorship",
		"Sponsors who attend kickoffs and reinforce messages raise success rates."},
	{"communication", "best_practices", "communicate the reason for change early and often",
		"Messages repeated through direct managers are trusted more than memos."},
	{"resistance", "best_practices", "listen to objections and involve skeptics in design",
		"Resistance often signals a gap in awareness or a fear of losing competence."},
	{"remote_work", "industry_trends", "hybrid teams need asynchronous change updates",
		"Recorded briefings and written decision logs replace hallway conversations."},
	{"ai_adoption", "industry_trends", "generative assistants reshape daily workflows",
		"Organizations pair tool rollouts with guidance on responsible use."},
	{"onboarding", "general", "new hire onboarding checklist for change agents",
		"Agents learn the change calendar, the impact assessment template and escalation paths."},
}

// BuildCorpus returns one document per topic, cycling through FileExtensions.
func BuildCorpus() []Document {
	docs := make([]Document, 0, len(topics))
	for i, t := range topics {
		docs = append(docs, Document{
			Name:     t.name,
			Category: t.category,
			Ext:      FileExtensions[i%len(FileExtensions)],
			Phrase:   t.phrase,
			Content:  fmt.Sprintf("%s. %s In short: %s.", t.phrase, t.body, t.phrase),
		})
	}
	return docs
}

// WriteCorpus writes docs under root. Documents in the "general" category are
// written directly under root.
func WriteCorpus(root string, docs []Document) error {
	for _, d := range docs {
		path := filepath.Join(root, d.RelPath())
		if d.Category == "general" {
			path = filepath.Join(root, d.Name+d.Ext)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		data, err := MinimalFile(d.Ext, d.Content)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return err
		}
	}
	return nil
}

package output

import (
	"fmt"
	"strconv"
	"strings"

	"news-reread/internal/model"
)

// Display selects the optional article fields to show.
type Display struct {
	ShowURL     bool
	ShowSummary bool
	ShowMemo    bool
}

const maxCell = 60

// Articles renders a list of articles as a table.
func (p *Printer) Articles(articles []model.Article, d Display) error {
	if len(articles) == 0 {
		p.Info("No articles.")
		return nil
	}

	header := []string{"ID", "", "Status", "Title"}
	if d.ShowURL {
		header = append(header, "URL")
	}
	if d.ShowMemo {
		header = append(header, "Memo")
	}
	header = append(header, "Saved")

	t := NewTable(p.out, header)
	for _, a := range articles {
		row := []string{
			strconv.FormatInt(a.ID, 10),
			p.Favorite(a.IsFavorite),
			string(a.Status),
			truncate(a.DisplayTitle()),
		}
		if d.ShowURL {
			row = append(row, truncate(a.URL))
		}
		if d.ShowMemo {
			row = append(row, truncate(deref(a.UserMemo)))
		}
		row = append(row, a.SavedAt.Local().Format("2006-01-02"))
		t.AddRow(row...)
	}
	return t.Render()
}

// Article prints one article in full.
func (p *Printer) Article(a model.Article, d Display) {
	title := a.DisplayTitle()
	if fav := p.Favorite(a.IsFavorite); fav != "" {
		title += " " + fav
	}
	p.Header(title)

	if d.ShowURL {
		p.Print("%s", a.URL)
	}
	meta := fmt.Sprintf("#%d  %s  priority %s  read %d times", a.ID, a.Status, a.Priority.OrDefault(), a.ReadCount)
	if a.NextReminderDate != nil {
		meta += "  next review " + a.NextReminderDate.String()
	}
	p.Print("%s", p.Dim(meta))

	if len(a.Tags) > 0 {
		names := make([]string, 0, len(a.Tags))
		for _, t := range a.Tags {
			names = append(names, t.Name)
		}
		p.Print("Tags: %s", strings.Join(names, ", "))
	}
	if d.ShowSummary && a.Description != nil && *a.Description != "" {
		p.Print("\n%s", *a.Description)
	}
	if d.ShowSummary && a.UserSummary != nil && *a.UserSummary != "" {
		p.Print("\n%s %s", p.Bold("Summary:"), *a.UserSummary)
	}
	if d.ShowMemo && a.UserMemo != nil && *a.UserMemo != "" {
		p.Print("\n%s %s", p.Bold("Memo:"), *a.UserMemo)
	}
	for _, q := range a.Questions {
		p.Print("? %s", q.Text)
	}
	for _, act := range a.Actions {
		box := "[ ]"
		if act.IsDone {
			box = "[x]"
		}
		p.Print("%s %s", box, act.Text)
	}
}

// Tags renders the tag set.
func (p *Printer) Tags(tags []model.Tag) error {
	if len(tags) == 0 {
		p.Info("No tags.")
		return nil
	}
	t := NewTable(p.out, []string{"ID", "Name"})
	for _, tag := range tags {
		t.AddRow(strconv.FormatInt(tag.ID, 10), tag.Name)
	}
	return t.Render()
}

// Shares renders the pending-share inbox.
func (p *Printer) Shares(shares []model.PendingShare) error {
	if len(shares) == 0 {
		p.Info("Inbox is empty.")
		return nil
	}
	t := NewTable(p.out, []string{"ID", "Status", "Title", "URL", "Received"})
	for _, sh := range shares {
		t.AddRow(
			sh.ID.String(),
			string(sh.Status),
			truncate(sh.Title),
			truncate(sh.URL),
			sh.ReceivedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return t.Render()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-1]) + "…"
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/GoCodeAlone/storeadmin/catalog"
	"github.com/GoCodeAlone/storeadmin/dataview"
	"github.com/GoCodeAlone/storeadmin/notify"
	"github.com/GoCodeAlone/storeadmin/table"
	"github.com/GoCodeAlone/storeadmin/tui"
)

func newFlagSet(name, summary string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to the storeadmin YAML config")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: storeadmin %s [options]\n\n%s\n\nOptions:\n", name, summary)
		fs.PrintDefaults()
	}
	return fs, cfgPath
}

func storeFrom(flagValue string, a *app) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if a.cfg.StoreID != "" {
		return a.cfg.StoreID, nil
	}
	return "", errors.New("a store id is required (-store or store_id)")
}

func runTUI(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("tui", "Interactive console for billboards and colors.")
	store := fs.String("store", "", "Store id (defaults to store_id from the config)")
	kind := fs.String("kind", catalog.BillboardsKind, "Tab shown first ("+strings.Join(catalog.Kinds(), ", ")+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := catalog.Lookup(*kind); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{interactive: true})
	if err != nil {
		return err
	}
	defer a.close()

	scope := *store
	if scope == "" {
		scope = cfg.StoreID
	}
	deps := a.paneDeps(tui.Clipboard{})
	kinds := append([]string{*kind}, without(catalog.Kinds(), *kind)...)
	panes := make([]dataview.Pane, 0, len(kinds))
	for _, k := range kinds {
		p, err := dataview.Open(k, deps)
		if err != nil {
			return err
		}
		if scope != "" {
			p.SetScope(scope)
		}
		panes = append(panes, p)
	}
	return tui.Run(ctx, tui.Options{Panes: panes, Notes: a.notes, Logger: a.logger})
}

func runList(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("list", "Print one page of a record table.")
	store := fs.String("store", "", "Store id (defaults to store_id from the config)")
	kind := fs.String("kind", catalog.BillboardsKind, "Record kind ("+strings.Join(catalog.Kinds(), ", ")+")")
	filter := fs.String("filter", "", "Keep rows whose filter column contains this text")
	sortBy := fs.String("sort", "", "Column id to sort by")
	desc := fs.Bool("desc", false, "Sort descending")
	page := fs.Int("page", 1, "Page number, starting at 1")
	hide := fs.String("hide", "", "Comma-separated column ids to hide")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 1 {
		return fmt.Errorf("-page must be at least 1")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	scope, err := storeFrom(*store, a)
	if err != nil {
		return err
	}
	p, err := a.openPane(*kind, scope)
	if err != nil {
		return err
	}
	if err := p.Load(ctx); err != nil {
		return fmt.Errorf("list %s: %w", *kind, err)
	}

	var opErr error
	p.Do(func(c table.Controller) {
		c.SetFilter(*filter)
		if *sortBy != "" {
			dir := table.Ascending
			if *desc {
				dir = table.Descending
			}
			if err := c.SetSort(*sortBy, dir); err != nil {
				opErr = fmt.Errorf("-sort %s: %w", *sortBy, err)
				return
			}
		}
		for _, id := range splitList(*hide) {
			if err := c.SetVisible(id, false); err != nil {
				opErr = fmt.Errorf("-hide %s: %w", id, err)
				return
			}
		}
		for range *page - 1 {
			if !c.NextPage() {
				break
			}
		}
	})
	if opErr != nil {
		return opErr
	}

	fmt.Fprintln(stdout, lipgloss.NewStyle().Bold(true).Render(p.Title()))
	fmt.Fprintln(stdout, renderTable(p.Snapshot()))
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("delete", "Delete one record and its stored asset.")
	store := fs.String("store", "", "Store id (defaults to store_id from the config)")
	kind := fs.String("kind", catalog.BillboardsKind, "Record kind ("+strings.Join(catalog.Kinds(), ", ")+")")
	id := fs.String("id", "", "Record id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return fmt.Errorf("-id is required")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	printer := notify.Func(func(n notify.Notification) {
		fmt.Fprintf(stdout, "%s: %s\n", n.Title, n.Description)
	})
	a, err := newApp(ctx, cfg, appOptions{notifier: printer})
	if err != nil {
		return err
	}
	defer a.close()

	scope, err := storeFrom(*store, a)
	if err != nil {
		return err
	}
	p, err := a.openPane(*kind, scope)
	if err != nil {
		return err
	}
	if err := p.Load(ctx); err != nil {
		return fmt.Errorf("list %s: %w", *kind, err)
	}
	if err := p.Delete(ctx, *id); err != nil {
		return fmt.Errorf("delete %s %s: %w", *kind, *id, err)
	}
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("sweep", "Retry asset deletions left pending by failed deletes.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.sweeper.Sweep(ctx)
	fmt.Fprintf(stdout, "removed %d, failed %d\n", res.Removed, res.Failed)
	return err
}

func renderTable(v table.View) string {
	headers := make([]string, len(v.Headers))
	for i, h := range v.Headers {
		headers[i] = h.Title
		if h.Title == "" {
			headers[i] = h.ID
		}
		switch h.Sort {
		case table.Ascending:
			headers[i] += " ↑"
		case table.Descending:
			headers[i] += " ↓"
		}
	}
	t := ltable.New().Border(lipgloss.NormalBorder()).Headers(headers...)
	for _, r := range v.Rows {
		t = t.Row(r.Cells...)
	}
	grid := t.String()
	if v.Empty() {
		// lipgloss tables have no colspan; the placeholder is a line as
		// wide as the whole table instead.
		placeholder := lipgloss.NewStyle().Width(lipgloss.Width(grid)).Align(lipgloss.Center).Render(v.Placeholder)
		grid += "\n" + placeholder
	}
	return fmt.Sprintf("%s\n%s    Page %d of %d", grid, v.SelectionLabel(), v.Page+1, v.PageCount)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

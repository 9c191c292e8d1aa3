package editor_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/editor"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/form"
	"github.com/goliatone/go-formsync/pkg/prompt"
	"github.com/goliatone/go-formsync/pkg/resolver"
)

type staticOptions map[entity.Kind][]resolver.Option

func (s staticOptions) Resolve(_ context.Context, kinds []entity.Kind, onLoaded func(entity.Kind, []resolver.Option)) map[entity.Kind][]resolver.Option {
	out := make(map[entity.Kind][]resolver.Option)
	for _, kind := range kinds {
		opts := s[kind]
		if opts == nil {
			opts = []resolver.Option{}
		}
		out[kind] = opts
		onLoaded(kind, opts)
	}
	return out
}

// gatedOptions delivers every kind except slow immediately and holds slow
// back until gate is closed.
type gatedOptions struct {
	staticOptions
	slow entity.Kind
	gate chan struct{}
}

func (g gatedOptions) Resolve(ctx context.Context, kinds []entity.Kind, onLoaded func(entity.Kind, []resolver.Option)) map[entity.Kind][]resolver.Option {
	var rest []entity.Kind
	for _, kind := range kinds {
		if kind != g.slow {
			rest = append(rest, kind)
		}
	}
	out := g.staticOptions.Resolve(ctx, rest, onLoaded)
	select {
	case <-g.gate:
	case <-ctx.Done():
		return out
	}
	out[g.slow] = g.staticOptions[g.slow]
	onLoaded(g.slow, g.staticOptions[g.slow])
	return out
}

// releasingDriver opens gate on the first single select and records whether
// the slow kind was still loading at that point.
type releasingDriver struct {
	*prompt.Scripted
	gate        chan struct{}
	once        sync.Once
	slowPending bool
}

func (d *releasingDriver) Select(ctx context.Context, cfg prompt.SelectConfig) (int, error) {
	d.once.Do(func() {
		select {
		case <-d.gate:
		default:
			d.slowPending = true
			close(d.gate)
		}
	})
	return d.Scripted.Select(ctx, cfg)
}

func open(t *testing.T, schema entity.Schema, raw map[string]any, options form.OptionSource) *form.Session {
	t.Helper()
	session, err := form.Open(context.Background(), schema, raw, options)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEdit_SanitizesAndRetriesRequiredText(t *testing.T) {
	session := open(t, entity.Genre(), nil, nil)
	driver := &prompt.Scripted{Inputs: []string{"   ", "<b>Tom & Jerry</b>"}}

	if err := editor.New(driver).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := session.Record().String("name"); got != "Tom & Jerry" {
		t.Fatalf("expected sanitized name, got %q", got)
	}
	if diff := cmp.Diff([]string{"Invalid name: required"}, driver.Infos()); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit_TeamRelations(t *testing.T) {
	options := staticOptions{
		entity.KindOrganization: {{ID: "org1", Label: "League - Oslo"}, {ID: "org2", Label: "Cup - Bergen"}},
		entity.KindGenre:        {{ID: "g1", Label: "Drama"}, {ID: "g2", Label: "Comedy"}},
	}
	session := open(t, entity.Team(), nil, options)
	driver := &prompt.Scripted{
		Inputs:   []string{"Lions", "p9"},
		Selects:  []int{0, 2},
		Multis:   [][]int{{1, 0}},
		Confirms: []bool{true, false},
	}

	if err := editor.New(driver).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}

	rec := session.Record()
	if got := rec.Ref("organization"); got != "org2" {
		t.Fatalf("expected org2, got %q", got)
	}
	if diff := cmp.Diff([]string{"g2", "g1"}, rec.Refs("genres")); diff != "" {
		t.Fatalf("genres mismatch (-want +got):\n%s", diff)
	}
	// No personnel options, so ids are entered by hand.
	if diff := cmp.Diff([]string{"p9"}, rec.Refs("personnel")); diff != "" {
		t.Fatalf("personnel mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Invalid organization: required"}, driver.Infos()); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}

	configs := driver.SelectConfigs()
	if len(configs) == 0 {
		t.Fatalf("expected select prompts")
	}
	want := []string{"Select Organization", "League - Oslo", "Cup - Bergen"}
	if diff := cmp.Diff(want, configs[0].Options); diff != "" {
		t.Fatalf("organization choices mismatch (-want +got):\n%s", diff)
	}
	if configs[0].DefaultIndex != 0 {
		t.Fatalf("expected sentinel default, got %d", configs[0].DefaultIndex)
	}
}

func TestEdit_FilterKeepsHiddenSelections(t *testing.T) {
	options := staticOptions{
		entity.KindOrganization: {{ID: "org1", Label: "League - Oslo"}},
		entity.KindGenre: {
			{ID: "g1", Label: "Drama"},
			{ID: "g2", Label: "Comedy"},
			{ID: "g3", Label: "Thriller"},
		},
		entity.KindPersonnel: {{ID: "p1", Label: "Ada Lovelace"}},
	}
	raw := map[string]any{
		"_id":          "t1",
		"name":         "Lions",
		"organization": "org1",
		"genres":       []any{"g3"},
		"personnel":    []any{"p1"},
	}
	session := open(t, entity.Team(), raw, options)
	driver := &prompt.Scripted{
		Inputs:  []string{"Lions", "dra"},
		Selects: []int{1},
		Multis:  [][]int{{0}, {0}},
	}

	if err := editor.New(driver, editor.WithFilterThreshold(2)).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}

	rec := session.Record()
	if diff := cmp.Diff([]string{"g3", "g1"}, rec.Refs("genres")); diff != "" {
		t.Fatalf("genres mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p1"}, rec.Refs("personnel")); diff != "" {
		t.Fatalf("personnel mismatch (-want +got):\n%s", diff)
	}
	if got := rec.Ref("organization"); got != "org1" {
		t.Fatalf("expected org1 kept, got %q", got)
	}

	configs := driver.SelectConfigs()
	if diff := cmp.Diff([]string{"Drama"}, configs[1].Options); diff != "" {
		t.Fatalf("filtered genres mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, configs[2].Defaults); diff != "" {
		t.Fatalf("personnel defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit_AcceptingDefaultsKeepsSelectionOrder(t *testing.T) {
	options := staticOptions{
		entity.KindOrganization: {{ID: "org1", Label: "League - Oslo"}},
		entity.KindGenre:        {{ID: "g1", Label: "Drama"}, {ID: "g2", Label: "Comedy"}},
		entity.KindPersonnel:    {{ID: "p1", Label: "Ada Lovelace"}, {ID: "p2", Label: "Alan Turing"}},
	}
	raw := map[string]any{
		"_id":          "t1",
		"name":         "Lions",
		"organization": "org1",
		"genres":       []any{"g2", "g1"},
		"personnel":    []any{"p2", "p1"},
	}
	session := open(t, entity.Team(), raw, options)
	driver := &prompt.Scripted{
		Inputs:  []string{"Lions"},
		Selects: []int{1},
		Multis:  [][]int{{0, 1}, {0, 1}},
	}

	if err := editor.New(driver).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}

	rec := session.Record()
	if diff := cmp.Diff([]string{"g2", "g1"}, rec.Refs("genres")); diff != "" {
		t.Fatalf("genres mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p2", "p1"}, rec.Refs("personnel")); diff != "" {
		t.Fatalf("personnel mismatch (-want +got):\n%s", diff)
	}
	changes, err := session.Changes()
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no changes after accepting defaults, got %+v", changes)
	}

	configs := driver.SelectConfigs()
	if diff := cmp.Diff([]int{0, 1}, configs[1].Defaults); diff != "" {
		t.Fatalf("genre defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit_RefSetKeepsOrderAndAppendsNewPicks(t *testing.T) {
	options := staticOptions{
		entity.KindOrganization: {{ID: "org1", Label: "League - Oslo"}},
		entity.KindGenre: {
			{ID: "g1", Label: "Drama"},
			{ID: "g2", Label: "Comedy"},
			{ID: "g3", Label: "Thriller"},
		},
	}
	raw := map[string]any{
		"_id":          "t1",
		"name":         "Lions",
		"organization": "org1",
		"genres":       []any{"g3", "g1"},
	}
	session := open(t, entity.Team(), raw, options)
	driver := &prompt.Scripted{
		Inputs:   []string{"Lions"},
		Selects:  []int{1},
		Multis:   [][]int{{1, 2}},
		Confirms: []bool{false},
	}

	if err := editor.New(driver).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}

	// g1 was unchecked, g3 keeps its place and g2 is appended.
	if diff := cmp.Diff([]string{"g3", "g2"}, session.Record().Refs("genres")); diff != "" {
		t.Fatalf("genres mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit_RelationPromptsWaitPerKind(t *testing.T) {
	gate := make(chan struct{})
	options := gatedOptions{
		staticOptions: staticOptions{
			entity.KindTeam:      {{ID: "t1", Label: "Lions"}, {ID: "t2", Label: "Bears"}},
			entity.KindGenre:     {{ID: "g1", Label: "Drama"}},
			entity.KindPersonnel: {{ID: "p1", Label: "Ada Lovelace"}},
		},
		slow: entity.KindPersonnel,
		gate: gate,
	}
	session := open(t, entity.Game(), nil, options)
	driver := &releasingDriver{
		gate: gate,
		Scripted: &prompt.Scripted{
			Inputs: []string{
				"Final", "movie", "", "",
				"", "", "", "", "", "", "", "",
				"", "",
			},
			Confirms:  []bool{false, false},
			TextAreas: []string{""},
			Selects:   []int{1, 2},
			Multis:    [][]int{{0}, {0}},
		},
	}

	if err := editor.New(driver).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !driver.slowPending {
		t.Fatalf("expected team prompt before personnel options arrived")
	}

	rec := session.Record()
	if rec.Ref("home_team") != "t1" || rec.Ref("away_team") != "t2" {
		t.Fatalf("unexpected teams %q / %q", rec.Ref("home_team"), rec.Ref("away_team"))
	}
	// Personnel waited for its own options instead of falling back to ids.
	if diff := cmp.Diff([]string{"p1"}, rec.Refs("personnel")); diff != "" {
		t.Fatalf("personnel mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit_GameScalarsAndNumbers(t *testing.T) {
	options := staticOptions{
		entity.KindTeam:      {{ID: "t1", Label: "Lions"}, {ID: "t2", Label: "Bears"}},
		entity.KindGenre:     {{ID: "g1", Label: "Drama"}},
		entity.KindPersonnel: {{ID: "p1", Label: "Ada Lovelace"}},
	}
	session := open(t, entity.Game(), nil, options)
	driver := &prompt.Scripted{
		Inputs: []string{
			"Final", "movie", "en", "",
			"abc", "7.5",
			"", "", "",
			"12", "2024-05-01", "2", "1",
			"", "",
		},
		Confirms:  []bool{false, true},
		TextAreas: []string{"Season opener"},
		Selects:   []int{1, 2},
		Multis:    [][]int{{0}, {}},
	}

	if err := editor.New(driver).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}

	rec := session.Record()
	if got := rec.Float("popularity"); got != 7.5 {
		t.Fatalf("expected popularity 7.5, got %v", got)
	}
	if got := rec.Int("vote_count"); got != 12 {
		t.Fatalf("expected vote_count 12, got %v", got)
	}
	if got := rec.Int("home_score"); got != 2 {
		t.Fatalf("expected home_score 2, got %v", got)
	}
	if !rec.Bool("played") || rec.Bool("video") {
		t.Fatalf("unexpected booleans: played=%v video=%v", rec.Bool("played"), rec.Bool("video"))
	}
	if rec.String("overview") != "Season opener" {
		t.Fatalf("unexpected overview %q", rec.String("overview"))
	}
	if rec.Ref("home_team") != "t1" || rec.Ref("away_team") != "t2" {
		t.Fatalf("unexpected teams %q / %q", rec.Ref("home_team"), rec.Ref("away_team"))
	}
	if diff := cmp.Diff([]string{"g1"}, rec.Refs("genres")); diff != "" {
		t.Fatalf("genres mismatch (-want +got):\n%s", diff)
	}
	if got := rec.Refs("personnel"); len(got) != 0 {
		t.Fatalf("expected no personnel, got %v", got)
	}
	if len(rec.Files) != 0 {
		t.Fatalf("expected no attachments, got %v", rec.Files)
	}

	infos := driver.Infos()
	if len(infos) != 1 || !strings.HasPrefix(infos[0], "Invalid popularity:") {
		t.Fatalf("expected popularity retry, got %v", infos)
	}
}

func TestEdit_AttachmentRetriesUnreadablePath(t *testing.T) {
	options := staticOptions{entity.KindTeam: {{ID: "t1", Label: "Lions"}}}
	session := open(t, entity.Personnel(), nil, options)
	driver := &prompt.Scripted{
		Inputs:  []string{"Ada", "Lovelace", "coach", "/tmp/missing.png", "/tmp/pics/avatar.png"},
		Selects: []int{1},
	}
	readFile := func(path string) ([]byte, error) {
		if strings.Contains(path, "missing") {
			return nil, os.ErrNotExist
		}
		return []byte("\x89PNG\r\n\x1a\n"), nil
	}

	if err := editor.New(driver, editor.WithReadFile(readFile)).Edit(testContext(t), session); err != nil {
		t.Fatalf("edit: %v", err)
	}

	rec := session.Record()
	file, ok := rec.Files["image"]
	if !ok {
		t.Fatalf("expected image attachment")
	}
	if file.Filename != "avatar.png" {
		t.Fatalf("expected avatar.png, got %q", file.Filename)
	}
	if rec.Ref("team") != "t1" {
		t.Fatalf("expected team t1, got %q", rec.Ref("team"))
	}
	infos := driver.Infos()
	if len(infos) != 1 || !strings.HasPrefix(infos[0], "Invalid image:") {
		t.Fatalf("expected image retry, got %v", infos)
	}
}

func TestEdit_PropagatesDriverErrors(t *testing.T) {
	session := open(t, entity.Genre(), nil, nil)
	err := editor.New(&prompt.Scripted{}).Edit(testContext(t), session)
	if !errors.Is(err, prompt.ErrNoAnswer) {
		t.Fatalf("expected ErrNoAnswer, got %v", err)
	}
}

func TestSanitize(t *testing.T) {
	e := editor.New(&prompt.Scripted{})
	cases := map[string]string{
		"plain":                          "plain",
		"  padded  ":                     "padded",
		"<script>alert(1)</script>Lions": "Lions",
		"Fish &amp; Chips":               "Fish & Chips",
		`"quoted" 'text'`:                `"quoted" 'text'`,
	}
	for in, want := range cases {
		if got := e.Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

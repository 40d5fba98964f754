// Package print resolves blueprint versions into deterministic, self-contained
// HTML fragments for the external PDF renderer, plus one answer key per
// version ordered the same way as its pages.
package print

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math/rand"
	"sort"
	"strconv"

	"github.com/Posologia-Edu/prova-facil/internal/bank"
	"github.com/Posologia-Edu/prova-facil/internal/blueprint"
)

var (
	ErrEmptyBlueprint = errors.New("exam has no sections to print")
	ErrMissingItem    = errors.New("blueprint references a missing bank item")
)

// Page is one rendered version.
type Page struct {
	Label         string `json:"label"`
	HTML          string `json:"html"`
	AnswerKeyHTML string `json:"answer_key_html"`
}

// RenderVersions shuffles and renders n print variants. The rng drives the
// per-section shuffles; passing a fixed seed makes output reproducible.
func RenderVersions(bp *blueprint.Blueprint, items map[string]*bank.Item, n int, rng *rand.Rand) ([]Page, error) {
	if len(bp.Sections) == 0 {
		return nil, ErrEmptyBlueprint
	}
	versions, err := blueprint.GenerateVersions(bp, n, rng)
	if err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(versions))
	for _, v := range versions {
		page, err := renderVersion(bp, items, v)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

type questionView struct {
	Number    int
	Statement string
	Points    float64
	Options   []optionView
	ColumnA   []string
	ColumnB   []string
	OpenLines bool
	TrueFalse bool
}

type optionView struct {
	Letter string
	Text   string
}

type sectionView struct {
	Name      string
	Empty     bool
	Questions []questionView
}

type pageView struct {
	Title    string
	Header   blueprint.Header
	Label    string
	Sections []sectionView
}

type keyEntry struct {
	Number int
	Answer string
}

func renderVersion(bp *blueprint.Blueprint, items map[string]*bank.Item, v blueprint.Version) (Page, error) {
	view := pageView{Title: bp.Title, Header: bp.Header, Label: v.Label}
	var key []keyEntry
	num := 0
	for _, sec := range v.Sections {
		sv := sectionView{Name: sec.Name, Empty: len(sec.Questions) == 0}
		for _, ref := range sec.Questions {
			item, ok := items[ref.BankItemID]
			if !ok {
				return Page{}, fmt.Errorf("%w: %s", ErrMissingItem, ref.BankItemID)
			}
			num++
			qv := questionView{Number: num, Statement: bank.Statement(item.Content), Points: ref.Points}
			switch c := item.Content.(type) {
			case bank.MultipleChoiceContent:
				for _, letter := range sortedLetters(c.OptionsByLetter) {
					qv.Options = append(qv.Options, optionView{Letter: letter, Text: c.OptionsByLetter[letter]})
				}
				key = append(key, keyEntry{num, c.CorrectLetter})
			case bank.TrueFalseContent:
				qv.TrueFalse = true
				key = append(key, keyEntry{num, strconv.FormatBool(c.CorrectBoolean)})
			case bank.OpenEndedContent:
				qv.OpenLines = true
				key = append(key, keyEntry{num, c.ExpectedAnswer})
			case bank.MatchingContent:
				qv.ColumnA = c.ColumnA
				qv.ColumnB = c.ColumnB
				key = append(key, keyEntry{num, matchingKey(c)})
			}
			sv.Questions = append(sv.Questions, qv)
		}
		view.Sections = append(view.Sections, sv)
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, view); err != nil {
		return Page{}, err
	}
	var keyBuf bytes.Buffer
	if err := keyTmpl.Execute(&keyBuf, struct {
		Label   string
		Entries []keyEntry
	}{v.Label, key}); err != nil {
		return Page{}, err
	}
	return Page{Label: v.Label, HTML: buf.String(), AnswerKeyHTML: keyBuf.String()}, nil
}

func sortedLetters(opts map[string]string) []string {
	letters := make([]string, 0, len(opts))
	for l := range opts {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

func matchingKey(c bank.MatchingContent) string {
	pairs := make([]int, 0, len(c.CorrectMatches))
	for a := range c.CorrectMatches {
		pairs = append(pairs, a)
	}
	sort.Ints(pairs)
	out := ""
	for i, a := range pairs {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%d-%d", a+1, c.CorrectMatches[a]+1)
	}
	return out
}

var pageTmpl = template.Must(template.New("page").Parse(`<article class="exam-version">
<header>
<h1>{{.Title}} — Version {{.Label}}</h1>
{{if .Header.Institution}}<p class="institution">{{.Header.Institution}}</p>{{end}}
{{if .Header.Teacher}}<p class="teacher">{{.Header.Teacher}}</p>{{end}}
{{if .Header.Date}}<p class="date">{{.Header.Date}}</p>{{end}}
{{if .Header.Instructions}}<p class="instructions">{{.Header.Instructions}}</p>{{end}}
</header>
{{range .Sections}}<section>
<h2>{{.Name}}</h2>
{{if .Empty}}<p class="empty">No questions in this section.</p>{{end}}
{{range .Questions}}<div class="question">
<p><strong>{{.Number}}.</strong> {{.Statement}} <em>({{.Points}} pts)</em></p>
{{if .Options}}<ol type="a">{{range .Options}}<li value="{{.Letter}}">{{.Text}}</li>{{end}}</ol>{{end}}
{{if .TrueFalse}}<p class="tf">( ) True &nbsp;&nbsp; ( ) False</p>{{end}}
{{if .OpenLines}}<div class="answer-lines"></div>{{end}}
{{if .ColumnA}}<div class="matching"><ol class="col-a">{{range .ColumnA}}<li>{{.}}</li>{{end}}</ol><ol class="col-b">{{range .ColumnB}}<li>{{.}}</li>{{end}}</ol></div>{{end}}
</div>{{end}}
</section>{{end}}
</article>`))

var keyTmpl = template.Must(template.New("key").Parse(`<article class="answer-key">
<h1>Answer Key — Version {{.Label}}</h1>
<ol>{{range .Entries}}<li value="{{.Number}}">{{.Answer}}</li>{{end}}</ol>
</article>`))

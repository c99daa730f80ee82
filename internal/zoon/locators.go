package zoon

import (
	"fmt"
	"sort"
	"strings"
)

// Region names a part of the site the scraper interacts with.
type Region string

const (
	LoginEntry    Region = "login_entry"
	LoginEmail    Region = "login_email"
	LoginPassword Region = "login_password"
	LoginSubmit   Region = "login_submit"
	ResultItem    Region = "result_item"
	ResultLink    Region = "result_link"
)

// Positional paths into zoon.ru markup. When the site changes, update these
// or override them from the [locators] config table.
var defaultLocators = map[Region]string{
	LoginEntry:    `xpath=//*[@id="header"]/div[1]/div[4]/ul/li/span`,
	LoginEmail:    `xpath=//*[@id="zhtml"]/body/div[5]/div/div/div[2]/div[2]/div[2]/form/label[1]/input`,
	LoginPassword: `xpath=//*[@id="zhtml"]/body/div[5]/div/div/div[2]/div[2]/div[2]/form/label[2]/input`,
	LoginSubmit:   `xpath=//*[@id="zhtml"]/body/div[5]/div/div/div[2]/div[2]/div[2]/form/button`,
	ResultItem:    `xpath=//*[@id="catalogContainer"]/div[1]/div[2]/div/div/div[1]/div/ul/li`,
	// only listings that already carry reviews render this anchor
	ResultLink: `xpath=//*[@id="catalogContainer"]/div[1]/div[2]/div/div/div[1]/div/ul/li/div/div[1]/div[1]/a`,
}

// Review page markup, matched against the rendered HTML with goquery.
const (
	ReviewItemSelector      = "li.comment-item.js-comment"
	ReviewStarsSelector     = "div.z-text--16.z-text--bold"
	ReviewBodySelector      = "div.js-comment-short-text.comment-text.z-text--16"
	ReviewPartsSelector     = "div.z-flex.z-flex--column.z-gap--12"
	ReviewPartSelector      = "div.z-flex.z-flex--column.z-gap--4.js-comment-part"
	ReviewPartTitleSelector = "div.comment-text-subtitle"
	ReviewContentSelector   = "span.js-comment-content"
	ReviewMoreSelector      = "span.js-comment-additional-text"
)

// Sub-block titles as the site renders them.
const (
	TitleAdvantages    = "Достоинства"
	TitleDisadvantages = "Недостатки"
	TitleComment       = "Комментарий"
)

type Locators map[Region]string

// NewLocators returns the default table with overrides applied by region
// name. Unknown region names are rejected.
func NewLocators(overrides map[string]string) (Locators, error) {
	locs := make(Locators, len(defaultLocators))
	for r, sel := range defaultLocators {
		locs[r] = sel
	}
	for name, sel := range overrides {
		r := Region(strings.TrimSpace(name))
		if _, ok := defaultLocators[r]; !ok {
			return nil, fmt.Errorf("unknown locator %q (known: %s)", name, strings.Join(Regions(), ", "))
		}
		if strings.TrimSpace(sel) == "" {
			return nil, fmt.Errorf("empty locator for %q", name)
		}
		locs[r] = sel
	}
	return locs, nil
}

func (l Locators) Get(r Region) (string, error) {
	sel, ok := l[r]
	if !ok || sel == "" {
		return "", fmt.Errorf("no locator for %s", r)
	}
	return sel, nil
}

// Regions lists every known region name, sorted.
func Regions() []string {
	names := make([]string, 0, len(defaultLocators))
	for r := range defaultLocators {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return names
}

package minhchinh

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/source"
	"github.com/riskibarqy/kqsx/internal/platform/textnorm"
)

var levelByClass = func() map[string]lottery.PrizeLevel {
	m := make(map[string]lottery.PrizeLevel, 9)
	for _, level := range lottery.PrizeLevels() {
		if class := level.PageClass(); class != "" {
			m[class] = level
		}
	}
	return m
}()

// ParseRegion extracts one board per province column from the region's
// results box. A page without the box, or with a box that has no numbers
// yet, is reported as lottery.ErrNotAvailable.
func ParseRegion(body []byte, region lottery.RegionCode) ([]source.RawBoard, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, lottery.NewParseError("page", "read html: %v", err)
	}

	table := findRegionTable(doc, region.Info().Name)
	if table == nil {
		return nil, crerr.Wrapf(lottery.ErrNotAvailable, "no %s results on page", region.Info().Name)
	}

	headers := table.Find("td.tentinh")
	if headers.Length() == 0 {
		return nil, lottery.NewParseError("provinces", "no province columns in %s table", region)
	}
	if region == lottery.RegionNorth {
		headers = headers.First()
	}

	boards := make([]source.RawBoard, 0, headers.Length())
	headers.Each(func(_ int, cell *goquery.Selection) {
		boards = append(boards, source.RawBoard{
			Code: provinceSlug(cell),
			Name: strings.Join(strings.Fields(cell.Text()), " "),
		})
	})

	allowed := make(map[lottery.PrizeLevel]bool, 9)
	for _, level := range region.PrizeOrder() {
		allowed[level] = true
	}

	total := 0
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < len(boards)+1 {
			return
		}
		level, ok := rowLevel(cells.First())
		if !ok || !allowed[level] {
			return
		}
		for i := range boards {
			numbers := extractNumbers(cells.Eq(i + 1))
			total += len(numbers)
			boards[i].Rows = append(boards[i].Rows, source.RawRow{
				Level:   string(level),
				Label:   level.Name(),
				Order:   1,
				Numbers: numbers,
			})
		}
	})

	if total == 0 {
		return nil, crerr.Wrapf(lottery.ErrNotAvailable, "%s results not published yet", region.Info().Name)
	}
	return boards, nil
}

func findRegionTable(doc *goquery.Document, regionName string) *goquery.Selection {
	target := strings.ToLower(regionName)
	var found *goquery.Selection
	doc.Find("div.box_kqxs").EachWithBreak(func(_ int, box *goquery.Selection) bool {
		title := strings.ToLower(textnorm.ASCII(box.Find("div.title").First().Text()))
		if !strings.Contains(title, target) {
			return true
		}
		if table := box.Find("table").First(); table.Length() > 0 {
			found = table
			return false
		}
		return true
	})
	return found
}

// provinceSlug reads "xsbt|ben-tre" from the read-result span, falling back
// to the province link "/xo-so-ben-tre".
func provinceSlug(cell *goquery.Selection) string {
	slug := ""
	if data, ok := cell.Find("span.read-result").Attr("data"); ok {
		if _, after, found := strings.Cut(data, "|"); found {
			slug = after
		}
	}
	if slug == "" {
		if href, ok := cell.Find("a").Attr("href"); ok {
			parts := strings.Split(strings.Trim(href, "/"), "/")
			slug = strings.TrimSuffix(strings.TrimPrefix(parts[len(parts)-1], "xo-so-"), ".html")
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(slug), "-", "_")
}

func rowLevel(label *goquery.Selection) (lottery.PrizeLevel, bool) {
	class, _ := label.Attr("class")
	for _, c := range strings.Fields(class) {
		if level, ok := levelByClass[c]; ok {
			return level, true
		}
	}
	return "", false
}

func extractNumbers(cell *goquery.Selection) []string {
	var numbers []string
	cell.Find("[data]").Each(func(_ int, node *goquery.Selection) {
		v, _ := node.Attr("data")
		v = strings.TrimSpace(v)
		if v == "" {
			v = strings.TrimSpace(node.Text())
		}
		if v != "" {
			numbers = append(numbers, v)
		}
	})
	if len(numbers) > 0 {
		return numbers
	}
	return strings.Fields(cell.Text())
}

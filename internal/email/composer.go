package email

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pricepulse/backend/internal/model"
)

// MatchKind labels why a match qualified
type MatchKind string

const (
	MatchThreshold MatchKind = "threshold"
	MatchSale      MatchKind = "sale"
)

// Subject lines, picked by which kinds a recipient's rows carry
const (
	subjectMixed     = "Tracked products price decrease!"
	subjectThreshold = "Tracked product(s) below threshold!"
	subjectSale      = "Tracked product(s) on sale!"
)

const (
	thresholdLead = "<p>The following tracked products have crossed your threshold!</p>"
	saleLead      = "<p>The following tracked products are on SALE!</p>"
)

// Classify labels a match as threshold or sale. Every row the matcher emits
// fits one of the two; anything else indicates a filtering bug upstream and
// is reported rather than coerced.
func Classify(m model.CustomerMatch) (MatchKind, error) {
	if m.PriceThreshold.Valid && m.CurrentPrice.LessThanOrEqual(m.PriceThreshold.Decimal) {
		return MatchThreshold, nil
	}
	if m.IsOnSale {
		return MatchSale, nil
	}
	return "", fmt.Errorf("match for %s on product %d satisfies neither threshold nor sale", m.Email, m.ProductID)
}

// FormatLine renders one product line. The "was" clause is omitted when no
// previous price exists, and the "(ON SALE)" suffix appears only on a
// double qualifier: a threshold match whose product is also on sale.
func FormatLine(m model.CustomerMatch, kind MatchKind) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s) <a href='%s'>%s</a>", m.WebsiteName, m.URL, m.ProductName)

	if m.PreviousPrice.Valid {
		fmt.Fprintf(&sb, " was £%s,", m.PreviousPrice.Decimal.String())
	}
	fmt.Fprintf(&sb, " now £%s", m.CurrentPrice.String())

	if kind == MatchThreshold && m.IsOnSale {
		sb.WriteString(" (ON SALE)")
	}
	sb.WriteString(".")
	return sb.String()
}

// Subject picks the subject line for one recipient's rows. Mixed kinds win
// regardless of counts or ordering.
func Subject(kinds []MatchKind) string {
	var hasThreshold, hasSale bool
	for _, k := range kinds {
		switch k {
		case MatchThreshold:
			hasThreshold = true
		case MatchSale:
			hasSale = true
		}
	}

	switch {
	case hasThreshold && hasSale:
		return subjectMixed
	case hasThreshold:
		return subjectThreshold
	default:
		return subjectSale
	}
}

// Body renders the threshold block then the sale block, each a lead sentence
// and an unordered list. A block with no rows renders as nothing at all.
func Body(thresholdLines, saleLines []string) string {
	var sb strings.Builder
	writeBlock(&sb, thresholdLead, thresholdLines)
	writeBlock(&sb, saleLead, saleLines)
	return sb.String()
}

func writeBlock(sb *strings.Builder, lead string, lines []string) {
	if len(lines) == 0 {
		return
	}
	sb.WriteString(lead)
	sb.WriteString("<ul>")
	for _, line := range lines {
		sb.WriteString("<li>")
		sb.WriteString(line)
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
}

// Compose groups matches by recipient and builds exactly one notification
// per distinct email. Recipients are emitted in sorted order and each
// recipient's lines keep their match order, so output is deterministic.
func Compose(matches []model.CustomerMatch) ([]model.EmailNotification, error) {
	byEmail := make(map[string][]model.CustomerMatch)
	emails := make([]string, 0)
	for _, m := range matches {
		if _, seen := byEmail[m.Email]; !seen {
			emails = append(emails, m.Email)
		}
		byEmail[m.Email] = append(byEmail[m.Email], m)
	}
	sort.Strings(emails)

	notifications := make([]model.EmailNotification, 0, len(emails))
	for _, email := range emails {
		rows := byEmail[email]

		kinds := make([]MatchKind, 0, len(rows))
		var thresholdLines, saleLines []string
		for _, row := range rows {
			kind, err := Classify(row)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, kind)

			line := FormatLine(row, kind)
			if kind == MatchThreshold {
				thresholdLines = append(thresholdLines, line)
			} else {
				saleLines = append(saleLines, line)
			}
		}

		notifications = append(notifications, model.EmailNotification{
			Recipient: email,
			Subject:   Subject(kinds),
			Body:      Body(thresholdLines, saleLines),
		})
	}
	return notifications, nil
}

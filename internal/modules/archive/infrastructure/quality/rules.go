package quality

import "regexp"

// Rule categories.
const (
	CategoryHeader      = "header"
	CategorySignature   = "signature"
	CategoryClosing     = "closing"
	CategoryBoilerplate = "boilerplate"
)

// Rule names one line pattern and the category it marks. Rules are matched
// per line, in order; the first match decides the line's category.
type Rule struct {
	Name     string
	Category string
	Pattern  *regexp.Regexp
}

// DefaultRules returns the built-in line classifier for email and scanned
// legal documents. Callers may replace or extend the list through Config.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "email_from", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^\s*from\s*:`)},
		{Name: "email_to", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^\s*to\s*:`)},
		{Name: "email_cc", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^\s*(cc|bcc)\s*:`)},
		{Name: "email_subject", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^\s*subject\s*:`)},
		{Name: "email_date", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^\s*(date|sent)\s*:`)},
		{Name: "forwarded_marker", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^\s*-{2,}\s*forwarded message\s*-{2,}`)},
		{Name: "original_marker", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^\s*-{2,}\s*original message\s*-{2,}`)},
		{Name: "reply_intro", Category: CategoryHeader, Pattern: regexp.MustCompile(`(?i)^on\b.{0,120}\bwrote:\s*$`)},

		{Name: "sig_delimiter", Category: CategorySignature, Pattern: regexp.MustCompile(`^--\s*$`)},
		{Name: "sig_sent_from", Category: CategorySignature, Pattern: regexp.MustCompile(`(?i)^sent from my`)},
		{Name: "sig_phone", Category: CategorySignature, Pattern: regexp.MustCompile(`(?i)^\s*(tel|phone|mobile|cell|fax|office|direct)\s*[.:]`)},
		{Name: "sig_website", Category: CategorySignature, Pattern: regexp.MustCompile(`(?i)^\s*(www\.|https?://)\S+\s*$`)},
		{Name: "sig_email_line", Category: CategorySignature, Pattern: regexp.MustCompile(`(?i)^\s*e-?mail\s*[.:]`)},
		{Name: "sig_confidentiality", Category: CategorySignature, Pattern: regexp.MustCompile(`(?i)(confidentiality notice|privileged and confidential|intended recipient)`)},

		{Name: "closing_salutation", Category: CategoryClosing, Pattern: regexp.MustCompile(`(?i)^\s*(best regards|kind regards|warm regards|regards|sincerely( yours)?|respectfully( submitted)?|very truly yours|yours truly|thanks|thank you|cheers)\s*[,.!]?\s*$`)},

		{Name: "page_footer", Category: CategoryBoilerplate, Pattern: regexp.MustCompile(`(?i)^\s*(page\s+\d+(\s+of\s+\d+)?|-\s*\d+\s*-)\s*$`)},
		{Name: "separator_rule", Category: CategoryBoilerplate, Pattern: regexp.MustCompile(`^\s*(-{5,}|={5,}|_{5,}|\*{5,}|~{5,}|#{5,})\s*$`)},
		{Name: "page_break_label", Category: CategoryBoilerplate, Pattern: regexp.MustCompile(`(?i)^\s*\[page break\]\s*$`)},
		{Name: "header_label", Category: CategoryBoilerplate, Pattern: regexp.MustCompile(`(?i)^\s*header\s*:`)},
		{Name: "footer_label", Category: CategoryBoilerplate, Pattern: regexp.MustCompile(`(?i)^\s*footer\s*:`)},
	}
}

package chunking

import (
	"strings"

	"CaseVault/internal/modules/archive/domain/content"
)

// Document type labels drive the separator profile used when splitting.
const (
	DocTypeEmail   = "email"
	DocTypeLegal   = "legal"
	DocTypeOCRScan = "ocr_scan"
	DocTypeGeneral = "general"
)

// TypeRule maps keyword evidence to a document type. Rules are evaluated in
// order and the first rule with a hit wins.
type TypeRule struct {
	DocType  string
	Keywords []string
}

func DefaultTypeRules() []TypeRule {
	return []TypeRule{
		{DocType: DocTypeOCRScan, Keywords: []string{
			"[page break]", "[illegible]", "ocr", "scanned copy", "\f",
		}},
		{DocType: DocTypeLegal, Keywords: []string{
			"motion", "affidavit", "complaint", "subpoena", "deposition",
			"exhibit", "docket", "plaintiff", "defendant", "stipulation",
			"hereinafter", "court", "brief",
		}},
	}
}

// ClassifyDocType picks a splitting profile from the record's source type
// and a keyword scan of the title plus the head of the body. Emails are
// classified by source type alone.
func ClassifyDocType(sourceType, title, body string) string {
	if strings.TrimSpace(sourceType) == content.SourceTypeEmail {
		return DocTypeEmail
	}

	sample := strings.ToLower(title)
	if len(body) > 2000 {
		body = body[:2000]
	}
	sample += "\n" + strings.ToLower(body)

	for _, rule := range DefaultTypeRules() {
		for _, kw := range rule.Keywords {
			if strings.Contains(sample, kw) {
				return rule.DocType
			}
		}
	}
	return DocTypeGeneral
}

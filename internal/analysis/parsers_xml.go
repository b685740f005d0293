/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// parseCheckstyleXML converts checkstyle's XML report
// (<checkstyle><file name="..."><error line severity message/>...).
func parseCheckstyleXML(tool string, data []byte) ([]Finding, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse checkstyle output: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "checkstyle" {
		return nil, fmt.Errorf("unexpected checkstyle document root")
	}
	var findings []Finding
	for _, file := range root.SelectElements("file") {
		path := file.SelectAttrValue("name", "")
		for _, e := range file.SelectElements("error") {
			sev := SeverityInfo
			switch strings.ToLower(e.SelectAttrValue("severity", "")) {
			case "error":
				sev = SeverityMedium
			case "warning":
				sev = SeverityLow
			}
			line, _ := strconv.Atoi(e.SelectAttrValue("line", "0"))
			findings = append(findings, Finding{
				Tool:     tool,
				Severity: sev,
				File:     path,
				Line:     line,
				Rule:     e.SelectAttrValue("source", ""),
				Message:  e.SelectAttrValue("message", ""),
			})
		}
	}
	return findings, nil
}

// parseSpotBugsXML converts spotbugs' BugCollection XML. Priority 1 is
// the most severe.
func parseSpotBugsXML(tool string, data []byte) ([]Finding, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse spotbugs output: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "BugCollection" {
		return nil, fmt.Errorf("unexpected spotbugs document root")
	}
	var findings []Finding
	for _, bug := range root.SelectElements("BugInstance") {
		sev := SeverityInfo
		switch bug.SelectAttrValue("priority", "") {
		case "1":
			sev = SeverityHigh
		case "2":
			sev = SeverityMedium
		case "3":
			sev = SeverityLow
		}
		message := bug.SelectAttrValue("type", "")
		if long := bug.SelectElement("LongMessage"); long != nil && strings.TrimSpace(long.Text()) != "" {
			message = strings.TrimSpace(long.Text())
		}
		var file string
		var line int
		if src := bug.SelectElement("SourceLine"); src != nil {
			file = src.SelectAttrValue("sourcepath", "")
			line, _ = strconv.Atoi(src.SelectAttrValue("start", "0"))
		}
		findings = append(findings, Finding{
			Tool:     tool,
			Severity: sev,
			File:     file,
			Line:     line,
			Rule:     bug.SelectAttrValue("type", ""),
			Message:  message,
		})
	}
	return findings, nil
}

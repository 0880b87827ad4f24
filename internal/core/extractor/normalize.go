package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// inlineMarkerPattern 句中緊接在空白後的編號或項目符號，group 1 為標記本身，group 2 為編號
	inlineMarkerPattern = regexp.MustCompile(`\s((\d{1,2})[.)]|[-*•])\s`)
	// leadingMarkerPattern 片段開頭的編號或項目符號
	leadingMarkerPattern = regexp.MustCompile(`^(?:\d{1,2}[.)]|[-*•])\s+`)
	// leadingNumberPattern 行首編號
	leadingNumberPattern = regexp.MustCompile(`^\s*(\d{1,2})[.)]\s`)
)

// NormalizeInstructions 將黏在一起的多個步驟拆成獨立步驟
//
// 先依換行切分，再於每個編號或項目符號前切分，最後去除標記、修剪空白並丟棄空片段。
// 結果為空時回傳原本修剪後的非空步驟，不會把非空清單變成空清單。
func NormalizeInstructions(items []string) []string {
	out := []string{}
	for _, item := range items {
		for _, line := range strings.Split(item, "\n") {
			for _, fragment := range splitAtMarkers(line) {
				step := strings.TrimSpace(leadingMarkerPattern.ReplaceAllString(strings.TrimSpace(fragment), ""))
				if step != "" {
					out = append(out, step)
				}
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitAtMarkers 在每個句中標記的起點切開，標記留在後一段開頭
//
// 句中編號只有在句末標點之後，或接續前一個編號時才算標記，避免把 "Simmer for 10. Serve" 的數字吃掉。
// 夾在兩個數字間的符號是範圍或算式，例如 "20 - 25"，不切開。
func splitAtMarkers(line string) []string {
	parts := []string{}
	start := 0
	last := -1
	if m := leadingNumberPattern.FindStringSubmatch(line); m != nil {
		last, _ = strconv.Atoi(m[1])
	}

	for _, loc := range inlineMarkerPattern.FindAllStringSubmatchIndex(line, -1) {
		markerStart, markerEnd := loc[2], loc[3]
		if markerStart <= start {
			continue
		}
		if loc[4] >= 0 {
			n, _ := strconv.Atoi(line[loc[4]:loc[5]])
			if n != last+1 && !endsSentence(line[:markerStart]) {
				continue
			}
			last = n
		} else if betweenNumbers(line[:markerStart], line[markerEnd:]) {
			continue
		}
		parts = append(parts, line[start:markerStart])
		start = markerStart
	}
	return append(parts, line[start:])
}

func endsSentence(before string) bool {
	before = strings.TrimRightFunc(before, unicode.IsSpace)
	return before != "" && strings.ContainsAny(before[len(before)-1:], ".!?;:")
}

func betweenNumbers(before, after string) bool {
	before = strings.TrimRightFunc(before, unicode.IsSpace)
	after = strings.TrimLeftFunc(after, unicode.IsSpace)
	return before != "" && after != "" &&
		unicode.IsDigit(rune(before[len(before)-1])) && unicode.IsDigit(rune(after[0]))
}

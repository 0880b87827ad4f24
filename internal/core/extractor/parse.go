package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/pkg/common"
)

var (
	// nestedObjectPattern 允許一層巢狀大括號
	nestedObjectPattern = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
	// flatObjectPattern 最簡單的單層物件
	flatObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)
)

// ErrNoJSON 回應中找不到 JSON 物件
var ErrNoJSON = errors.New("no JSON object found in response")

// ExtractJSON 從模型回應中找出第一個可解析的 JSON 物件
//
// 模型可能在 JSON 外包上說明文字或程式碼區塊。依序嘗試：完整配對的大括號區段、
// 允許一層巢狀的區段、最簡單的單層區段；每個區段解析失敗時再嘗試補上引號的鍵名。
func ExtractJSON(text string) (recipe.Record, error) {
	candidates := []string{balancedObject(text)}
	candidates = append(candidates, nestedObjectPattern.FindString(text))
	candidates = append(candidates, flatObjectPattern.FindString(text))

	var lastErr error
	tried := map[string]bool{}
	for _, c := range candidates {
		if c == "" || tried[c] {
			continue
		}
		tried[c] = true

		rec, err := parseObject(c)
		if err == nil {
			return rec, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		return nil, ErrNoJSON
	}
	return nil, fmt.Errorf("parse response JSON: %w", lastErr)
}

func parseObject(s string) (recipe.Record, error) {
	var rec recipe.Record
	err := common.ParseJSON(s, &rec)
	if err == nil && rec != nil {
		return rec, nil
	}
	if repaired := common.QuoteJSONKeys(s); repaired != s {
		var fixed recipe.Record
		if err2 := common.ParseJSON(repaired, &fixed); err2 == nil && fixed != nil {
			return fixed, nil
		}
	}
	if err == nil {
		err = ErrNoJSON
	}
	return nil, err
}

// balancedObject 回傳第一個 '{' 與其配對 '}' 之間的區段，字串內的大括號不計
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// ParseResponse 解析模型回應並檢查必要的名稱欄位
func ParseResponse(text string) (recipe.Record, error) {
	rec, err := ExtractJSON(text)
	if err != nil {
		return nil, common.ErrMalformedResponse.Wrap(err)
	}
	if strings.TrimSpace(recipe.AsString(rec["name"])) == "" {
		return nil, common.ErrMalformedResponse.Wrap(errors.New("recipe name is missing"))
	}
	return rec, nil
}

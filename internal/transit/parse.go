package transit

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/mediaci/internal/domain"
)

// ParseTransitHTML 从上传响应中取出 <textarea name="op|fn|st"> 的内容。
//
// HTML 解析器会把标签名/属性名统一为小写，因此匹配天然大小写不敏感。
// 缺失的字段返回空串；是否必需由调用方判断。
func ParseTransitHTML(html []byte) (domain.TransitFields, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return domain.TransitFields{}, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.TransitFields{}, err
	}
	return domain.TransitFields{
		Op:       textareaValue(doc, "op"),
		FileCode: textareaValue(doc, "fn"),
		Status:   textareaValue(doc, "st"),
	}, nil
}

func textareaValue(doc *goquery.Document, name string) string {
	var out string
	doc.Find("textarea").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
		out = strings.TrimSpace(s.Text())
		return false
	})
	return out
}

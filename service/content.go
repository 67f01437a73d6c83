package service

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/cydxin/community-sdk/apperr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	PostTitleMaxLen   = 200
	PostBodyMaxLen    = 20000
	CommentBodyMaxLen = 5000
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	ugcPolicy = bluemonday.UGCPolicy()
)

func init() {
	ugcPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	ugcPolicy.RequireNoReferrerOnLinks(true)
}

// RenderBody markdown -> 安全 HTML，只在写入时执行一次
func RenderBody(src string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(src), &buf); err != nil {
		return ugcPolicy.Sanitize(src)
	}
	return string(ugcPolicy.SanitizeBytes(buf.Bytes()))
}

// checkText 去掉首尾空白后按字符数校验
func checkText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return "", apperr.Validation("%s 不能为空", field)
	}
	if n > max {
		return "", apperr.Validation("%s 不能超过 %d 个字符", field, max)
	}
	return s, nil
}

// Package email extracts delivery download information from the vendor's
// notification emails.
package email

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/novodl/novodl/internal/model"
)

// The vendor emails are written in Chinese with a fixed "label: value" layout.
// Both the full-width (：) and ASCII (:) colon variants appear in the wild.
var fieldPatterns = map[string]*regexp.Regexp{
	"data_path":    regexp.MustCompile(`数据路径为[:：]\s*(.+?)\s*(?:\n|$)`),
	"username":     regexp.MustCompile(`登录账号[:：]\s*(.+?)\s*(?:\n|$)`),
	"password":     regexp.MustCompile(`登录密码[:：]\s*(.+?)\s*(?:\n|$)`),
	"release_date": regexp.MustCompile(`数据释放日期[:：]\s*(.+?)\s*(?:\n|$)`),
	"expire_date":  regexp.MustCompile(`数据有效期至[:：]\s*(.+?)\s*(?:\n|$)`),
	"total_size":   regexp.MustCompile(`交付文件总大小[:：]\s*(.+?)\s*(?:\n|$)`),
	"sample_count": regexp.MustCompile(`样品个数[:：]\s*(.+?)\s*(?:\n|$)`),
	"sample_names": regexp.MustCompile(`样品名称[:：]\s*(.+?)\s*(?:\n|$)`),
	"batch_info":   regexp.MustCompile(`送样批次信息[:：]\s*(.+?)\s*(?:\n|$)`),
	"notes":        regexp.MustCompile(`备注信息[:：]\s*(.+?)\s*(?:\n|$)`),
}

var requiredFields = []string{"data_path", "username", "password"}

// Parser extracts delivery information from email text.
type Parser struct{}

// NewParser creates a new email parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts a delivery from the raw email text. It fails when the text
// is empty or any required field (data path, username, password) is missing.
func (p *Parser) Parse(emailText string) (*model.Delivery, error) {
	emailText = strings.TrimSpace(emailText)
	if emailText == "" {
		return nil, fmt.Errorf("email text is empty: %w", model.ErrNotValid)
	}

	extracted := map[string]string{}
	for field, pattern := range fieldPatterns {
		match := pattern.FindStringSubmatch(emailText)
		if match != nil {
			extracted[field] = strings.TrimRight(strings.TrimSpace(match[1]), ";；")
		}
	}

	var missing []string
	for _, field := range requiredFields {
		if extracted[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields %s: %w", strings.Join(missing, ", "), model.ErrNotValid)
	}

	return &model.Delivery{
		DataPath:    normalizeDataPath(extracted["data_path"]),
		Username:    extracted["username"],
		Password:    extracted["password"],
		ReleaseDate: extracted["release_date"],
		ExpireDate:  extracted["expire_date"],
		TotalSize:   extracted["total_size"],
		SampleCount: extracted["sample_count"],
		SampleNames: extracted["sample_names"],
		BatchInfo:   extracted["batch_info"],
		Notes:       extracted["notes"],
	}, nil
}

// normalizeDataPath converts the relative paths some emails carry into the
// oss:// form the lnd tool expects. Batch-relative paths start with "CP".
func normalizeDataPath(path string) string {
	if strings.HasPrefix(path, "oss://") {
		return path
	}
	if strings.HasPrefix(path, "CP") {
		return "oss://" + path
	}
	return path
}

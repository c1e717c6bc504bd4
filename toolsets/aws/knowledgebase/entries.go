package awsknowledgebase

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"awsdev/internal/config"
)

// EnvKnowledgeBases lists knowledge bases when the config file does not.
const EnvKnowledgeBases = "AWS_KNOWLEDGE_BASES"

var ErrNotConfigured = errors.New("AWS_KNOWLEDGE_BASES environment variable is not set")

// profile/<awsProfile>:<knowledgeBaseId>/<knowledgeBaseName>
var entryPattern = regexp.MustCompile(`^profile/([^:]+):([^/]+)/(.+)$`)

type KnowledgeBase struct {
	AWSProfile string `json:"aws_profile"`
	ID         string `json:"knowledge_base_id"`
	Name       string `json:"knowledge_base_name"`
}

// Parse reads a comma separated entry list. Malformed entries are skipped;
// an empty list is ErrNotConfigured.
func Parse(raw string) ([]KnowledgeBase, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNotConfigured
	}
	out := []KnowledgeBase{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		match := entryPattern.FindStringSubmatch(entry)
		if match == nil {
			continue
		}
		out = append(out, KnowledgeBase{AWSProfile: match[1], ID: match[2], Name: match[3]})
	}
	return out, nil
}

// Configured returns the knowledge bases from config entries, falling back to
// the environment.
func Configured(cfg *config.Config) ([]KnowledgeBase, error) {
	if cfg != nil && len(cfg.KnowledgeBases.Entries) > 0 {
		return Parse(strings.Join(cfg.KnowledgeBases.Entries, ","))
	}
	return Parse(os.Getenv(EnvKnowledgeBases))
}

package source

import (
	"strings"

	"github.com/rowanfield/ccledger/internal/model"
)

// errorTaxonomy is the fixed classification order. The first category whose
// substring list matches wins; everything unmatched is "other".
var errorTaxonomy = []struct {
	category model.ErrorCategory
	substrs  []string
}{
	{model.ErrFileNotFound, []string{"no such file", "file not found", "enoent", "does not exist"}},
	{model.ErrPermissionDenied, []string{"permission denied", "eacces", "operation not permitted"}},
	{model.ErrSyntax, []string{"syntaxerror", "syntax error", "parse error", "invalid syntax"}},
	{model.ErrTimeout, []string{"timed out", "timeout"}},
	{model.ErrConnection, []string{"connection", "econnrefused", "network is unreachable"}},
	{model.ErrNonZeroExit, []string{"exit code", "exit status", "non-zero"}},
	{model.ErrNotUnique, []string{"not unique", "found multiple", "more than one match"}},
}

// ClassifyError buckets a tool error message by case-insensitive substring
// match against the fixed taxonomy.
func ClassifyError(msg string) model.ErrorCategory {
	lower := strings.ToLower(msg)
	for _, entry := range errorTaxonomy {
		for _, sub := range entry.substrs {
			if strings.Contains(lower, sub) {
				return entry.category
			}
		}
	}
	return model.ErrOther
}

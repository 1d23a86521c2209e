package dataprocessing

import (
	"path/filepath"
	"strconv"
	"strings"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

// FilenameGrammar describes how identity tokens are spelled in paths.
type FilenameGrammar struct {
	Separator       string
	Groups          []config.TokenSpec
	Batches         []config.TokenSpec
	TimepointSuffix string
	OrganoidPrefix  string
}

// GrammarFromConfig builds the grammar for an experiment. Timepoint and
// batch tokens are only recognised when the experiment declares them.
func GrammarFromConfig(cfg config.ExperimentConfig) FilenameGrammar {
	g := FilenameGrammar{
		Separator:      cfg.Filename.Separator,
		Groups:         cfg.Groups,
		Batches:        cfg.Batches,
		OrganoidPrefix: cfg.Filename.OrganoidPrefix,
	}
	if len(cfg.Timepoints) > 0 {
		g.TimepointSuffix = cfg.Filename.TimepointSuffix
	}
	return g
}

// FilenameParser decodes measurement paths into organoid identities.
type FilenameParser struct {
	grammar FilenameGrammar
}

// NewFilenameParser creates a parser for the given grammar
func NewFilenameParser(grammar FilenameGrammar) *FilenameParser {
	if grammar.Separator == "" {
		grammar.Separator = config.DefaultSeparator
	}
	if grammar.OrganoidPrefix == "" {
		grammar.OrganoidPrefix = config.DefaultOrganoidPrefix
	}
	return &FilenameParser{grammar: grammar}
}

// Parse scans the path's tokens left to right; the first token matching
// each category wins. Group and organoid are required. Timepoint and
// batch are optional.
func (p *FilenameParser) Parse(path string) (domain.Identity, error) {
	var id domain.Identity
	var haveGroup, haveOrg, haveTime, haveBatch bool

	for _, token := range p.tokens(path) {
		switch {
		case !haveOrg && p.isOrganoid(token):
			n, err := strconv.Atoi(strings.TrimPrefix(token, p.grammar.OrganoidPrefix))
			if err != nil || n < 1 {
				return domain.Identity{}, apperrors.NewParseError(path, "organoid index must be a positive integer").
					WithContext("token", token)
			}
			id.Organoid = n
			haveOrg = true
		case !haveBatch && len(p.grammar.Batches) > 0 && matchToken(p.grammar.Batches, token) != "":
			id.Batch = matchToken(p.grammar.Batches, token)
			haveBatch = true
		case !haveGroup && matchToken(p.grammar.Groups, token) != "":
			id.Group = matchToken(p.grammar.Groups, token)
			haveGroup = true
		case !haveTime && p.isTimepoint(token):
			id.Timepoint = token
			haveTime = true
		}
	}

	if !haveGroup {
		return domain.Identity{}, apperrors.NewParseError(path, "no group token in filename")
	}
	if !haveOrg {
		return domain.Identity{}, apperrors.NewParseError(path, "no organoid token in filename").
			WithContext("organoid_prefix", p.grammar.OrganoidPrefix)
	}
	return id, nil
}

// tokens splits every path segment on the separator. The extension of the
// final segment is dropped.
func (p *FilenameParser) tokens(path string) []string {
	path = filepath.ToSlash(path)
	path = strings.TrimSuffix(path, filepath.Ext(path))

	var out []string
	for _, segment := range strings.Split(path, "/") {
		for _, tok := range strings.Split(segment, p.grammar.Separator) {
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

func (p *FilenameParser) isOrganoid(token string) bool {
	digits, ok := strings.CutPrefix(token, p.grammar.OrganoidPrefix)
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p *FilenameParser) isTimepoint(token string) bool {
	suffix := p.grammar.TimepointSuffix
	return suffix != "" && len(token) > len(suffix) && strings.HasSuffix(token, suffix)
}

// matchToken returns the display name of the TokenSpec matching token. An
// exact match wins over prefix matches; among prefixes the longest wins.
func matchToken(specs []config.TokenSpec, token string) string {
	best := -1
	for i, s := range specs {
		if s.Token == token {
			return s.DisplayName()
		}
		if strings.HasPrefix(token, s.Token) && (best < 0 || len(s.Token) > len(specs[best].Token)) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return specs[best].DisplayName()
}

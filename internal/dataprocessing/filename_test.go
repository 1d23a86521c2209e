package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organoidcli/internal/config"
	apperrors "organoidcli/internal/errors"
	"organoidcli/pkg/contracts/domain"
)

func testGrammar() FilenameGrammar {
	return FilenameGrammar{
		Separator: "_",
		Groups: []config.TokenSpec{
			{Token: "group0", Name: "DMSO"},
			{Token: "group1", Name: "TAS120"},
			{Token: "ctrl"},
		},
		Batches:         []config.TokenSpec{{Token: "batch2", Name: "gbm22"}},
		TimepointSuffix: "days",
		OrganoidPrefix:  "org",
	}
}

func TestFilenameParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    domain.Identity
		wantErr bool
	}{
		{
			name: "full grammar",
			path: "raw/200407_gbm22_batch2_group0_3days_org4_Shortest_Distance_to_Surfaces.csv",
			want: domain.Identity{Batch: "gbm22", Group: "DMSO", Timepoint: "3days", Organoid: 4},
		},
		{
			name: "single timepoint mode",
			path: "raw/x_group1_org12_Distance.csv",
			want: domain.Identity{Group: "TAS120", Organoid: 12},
		},
		{
			name: "tokens in directory segments",
			path: "ctrl_Imaris/7days/run_org2.csv",
			want: domain.Identity{Group: "ctrl", Timepoint: "7days", Organoid: 2},
		},
		{
			name: "first match per category wins",
			path: "raw/group1_org1_group0_org2.csv",
			want: domain.Identity{Group: "TAS120", Organoid: 1},
		},
		{
			name: "prefix match",
			path: "raw/ctrlA_org3.csv",
			want: domain.Identity{Group: "ctrl", Organoid: 3},
		},
		{
			name:    "organoid needs a numeral",
			path:    "raw/group0_organoid_orgX.csv",
			wantErr: true,
		},
		{
			name:    "organoid zero",
			path:    "raw/group0_org0.csv",
			wantErr: true,
		},
		{
			name: "leading zeros",
			path: "raw/group0_org007.csv",
			want: domain.Identity{Group: "DMSO", Organoid: 7},
		},
		{
			name:    "missing group",
			path:    "raw/unknown_org1.csv",
			wantErr: true,
		},
		{
			name:    "missing organoid",
			path:    "raw/group0_3days.csv",
			wantErr: true,
		},
	}

	p := NewFilenameParser(testGrammar())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrammarFromConfig(t *testing.T) {
	cfg := config.Default().Experiment
	cfg.Groups = []config.TokenSpec{{Token: "ctrl"}}

	g := GrammarFromConfig(cfg)
	assert.Empty(t, g.TimepointSuffix, "timepoints are ignored when none are declared")

	cfg.Timepoints = []string{"1days"}
	g = GrammarFromConfig(cfg)
	assert.Equal(t, "days", g.TimepointSuffix)

	id, err := NewFilenameParser(g).Parse("ctrl_1days_org1.csv")
	require.NoError(t, err)
	assert.Equal(t, "1days", id.Timepoint)
}

func TestMatchToken(t *testing.T) {
	specs := []config.TokenSpec{{Token: "TAS"}, {Token: "TAS120"}, {Token: "TAS120+JQ1"}}

	assert.Equal(t, "TAS120", matchToken(specs, "TAS120"))
	assert.Equal(t, "TAS120+JQ1", matchToken(specs, "TAS120+JQ1"))
	assert.Equal(t, "TAS120", matchToken(specs, "TAS120x"))
	assert.Equal(t, "TAS", matchToken(specs, "TASK"))
	assert.Equal(t, "", matchToken(specs, "JQ1"))
}

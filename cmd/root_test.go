package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/model"
)

func usageFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addUsageFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return fs
}

func TestApplyUsageFlags_OnlySetFlagsOverride(t *testing.T) {
	base := config.DefaultConfig().UsageConfiguration()
	base.NodeCount = 3
	base.PropertiesPerDatum = 7
	base.OSCPCapacityGroups.Enabled = true

	fs := usageFlags(t, "--sources", "9", "--datum-per-hour", "120", "--ocpp", "--dnp3-count", "25", "--oscp=false")
	got := applyUsageFlags(fs, base)

	if got.SourcesPerNode != 9 {
		t.Errorf("SourcesPerNode = %v, want 9", got.SourcesPerNode)
	}
	if got.NodeCount != 3 || got.PropertiesPerDatum != 7 {
		t.Errorf("unset flags overrode config: nodes %v, props %v", got.NodeCount, got.PropertiesPerDatum)
	}
	if got.DatumPerSourcePerHour != base.DatumPerSourcePerHour || got.QueriedDatumPerSourcePerHour != base.QueriedDatumPerSourcePerHour {
		t.Errorf("unset rate flags overrode config: %+v", got)
	}
	if got.DatumPerHour == nil || *got.DatumPerHour != 120 {
		t.Errorf("DatumPerHour = %v, want pinned 120", got.DatumPerHour)
	}
	if got.PropertiesPerHour != nil {
		t.Errorf("PropertiesPerHour = %v, want unpinned", *got.PropertiesPerHour)
	}
	if want := (model.AddOn{Count: base.OCPPChargers.Count, Enabled: true}); got.OCPPChargers != want {
		t.Errorf("OCPPChargers = %+v, want %+v", got.OCPPChargers, want)
	}
	if want := (model.AddOn{Count: 25}); got.DNP3DataPoints != want {
		t.Errorf("DNP3DataPoints = %+v, want %+v", got.DNP3DataPoints, want)
	}
	if got.OSCPCapacityGroups.Enabled {
		t.Error("--oscp=false left OSCP enabled")
	}

	if base.SourcesPerNode == 9 || base.DatumPerHour != nil {
		t.Error("applyUsageFlags modified its input")
	}
}

func TestApplyUsageFlags_NoFlagsKeepsConfig(t *testing.T) {
	base := config.DefaultConfig().UsageConfiguration()
	base.PropertiesPerHour = model.Float(500)
	got := applyUsageFlags(usageFlags(t), base)
	if got.NodeCount != base.NodeCount || got.OCPPChargers != base.OCPPChargers {
		t.Fatalf("usage = %+v, want %+v", got, base)
	}
	if got.PropertiesPerHour == nil || *got.PropertiesPerHour != 500 {
		t.Fatalf("PropertiesPerHour = %v, want config pin 500", got.PropertiesPerHour)
	}
}

func settingsCommand(t *testing.T, configBody string, args ...string) *cobra.Command {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(configBody), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TIERCOST_CONFIG", path)

	c := &cobra.Command{Use: "test"}
	addUsageFlags(c.Flags())
	if err := c.Flags().Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return c
}

func TestLoadSettings_AppliesFlags(t *testing.T) {
	c := settingsCommand(t, "[usage]\nnode_count = 2\n", "--months", "24", "--sources", "8")
	st, err := loadSettings(c, "none")
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if st.months != 24 || st.usage.NodeCount != 2 || st.usage.SourcesPerNode != 8 {
		t.Fatalf("settings = months %d, usage %+v", st.months, st.usage)
	}
}

func TestLoadSettings_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		config string
		args   []string
		want   string
	}{
		{"negative flag", "", []string{"--nodes", "-5"}, "node_count"},
		{"negative config", "[usage]\nnode_count = -5\n", nil, "node_count"},
		{"negative add-on", "[addons.ocpp]\ncount = -1\n", nil, "ocpp_chargers.count"},
		{"non-finite pin", "", []string{"--datum-per-hour", "NaN"}, "datum_per_hour"},
		{"huge months flag", "", []string{"--months", "9000000000000000000"}, "months"},
		{"huge months config", "[general]\nmonths = 5000\n", nil, "months"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := settingsCommand(t, tt.config, tt.args...)
			_, err := loadSettings(c, "none")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("loadSettings error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

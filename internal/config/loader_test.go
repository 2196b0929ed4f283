package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/runnerpool/internal/validate"
)

const validYAML = `appName: Test App
version: 1.0-test
server:
  host: testhost
  port: 9090
featureFlags:
  newDashboard: false
  dataExport: true
vmPool:
  maxSize: 50
  idleTimeout: PT15M
  defaultOs: test-os
labelVmMappings:
  - label: test-gpu
    vmSeriesSize: test-gpu-vm
    osImage: test-gpu-image
    region: test-region
    vNet: test-vnet
    subnet: test-subnet
    networkSecurityGroup: test-nsg
    diskTypeSize: Premium_LRS 128GB
    runnersPerVm: 1
    poolParameters:
      minimumWarmVms: 1
      maximumPoolSize: 5
      scaleUpTriggerThreshold: 1
      idleTimeout: PT1H
  - label: test-mem
    vmSeriesSize: test-mem-vm
    osImage: test-mem-image
    region: test-region
    vNet: test-vnet
    subnet: test-subnet
    networkSecurityGroup: test-nsg
    diskTypeSize: Standard_LRS 64GB
    runnersPerVm: 3
    poolParameters:
      minimumWarmVms: 0
      maximumPoolSize: 2
      scaleUpTriggerThreshold: 0
      idleTimeout: 30m
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mutate applies old->new replacements to the valid document.
func mutate(t *testing.T, pairs ...string) string {
	t.Helper()
	doc := validYAML
	for i := 0; i+1 < len(pairs); i += 2 {
		if !strings.Contains(doc, pairs[i]) {
			t.Fatalf("fixture does not contain %q", pairs[i])
		}
		doc = strings.Replace(doc, pairs[i], pairs[i+1], 1)
	}
	return doc
}

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func loadDoc(t *testing.T, doc string) (*AppConfig, error) {
	t.Helper()
	return NewLoader(WithLogger(quietLogger())).Load(SchemeFile + writeConfig(t, doc))
}

func requireLoadError(t *testing.T, err error, kind error) *LoadError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var le *LoadError
	require.True(t, errors.As(err, &le), "error should be *LoadError, got %T", err)
	return le
}

func TestLoad_RoundTrip(t *testing.T) {
	cfg, err := loadDoc(t, validYAML)
	require.NoError(t, err)

	assert.Equal(t, "Test App", cfg.AppName)
	assert.Equal(t, "1.0-test", cfg.Version)
	require.NotNil(t, cfg.Server)
	assert.Equal(t, "testhost", cfg.Server.Host)
	require.NotNil(t, cfg.Server.Port)
	assert.Equal(t, 9090, *cfg.Server.Port)
	assert.Equal(t, map[string]bool{"newDashboard": false, "dataExport": true}, cfg.FeatureFlags)

	require.NotNil(t, cfg.VMPool)
	require.NotNil(t, cfg.VMPool.MaxSize)
	assert.Equal(t, 50, *cfg.VMPool.MaxSize)
	require.NotNil(t, cfg.VMPool.IdleTimeout)
	assert.Equal(t, 15*time.Minute, cfg.VMPool.IdleTimeout.Std())
	assert.Equal(t, "test-os", cfg.VMPool.DefaultOS)

	require.Len(t, cfg.LabelVMMappings, 2)
	gpu := cfg.LabelVMMappings[0]
	assert.Equal(t, LabelVMMapping{
		Label:                "test-gpu",
		VMSeriesSize:         "test-gpu-vm",
		OSImage:              "test-gpu-image",
		Region:               "test-region",
		VNet:                 "test-vnet",
		Subnet:               "test-subnet",
		NetworkSecurityGroup: "test-nsg",
		DiskTypeSize:         "Premium_LRS 128GB",
		RunnersPerVM:         1,
		PoolParameters:       gpu.PoolParameters,
	}, gpu)
	require.NotNil(t, gpu.PoolParameters)
	assert.Equal(t, 1, gpu.PoolParameters.MinimumWarmVMs)
	assert.Equal(t, 5, gpu.PoolParameters.MaximumPoolSize)
	assert.Equal(t, 1, gpu.PoolParameters.ScaleUpTriggerThreshold)
	assert.Equal(t, time.Hour, gpu.PoolParameters.IdleTimeout.Std())

	mem := cfg.LabelVMMappings[1]
	assert.Equal(t, "test-mem", mem.Label)
	assert.Equal(t, "test-mem-vm", mem.VMSeriesSize)
	assert.Equal(t, 3, mem.RunnersPerVM)
	assert.Equal(t, 30*time.Minute, mem.PoolParameters.IdleTimeout.Std())

	assert.Equal(t, []string{"test-gpu", "test-mem"}, cfg.Labels())
	assert.Equal(t, "testhost:9090", cfg.Server.Listen())
}

func TestLoad_EmptyFeatureFlagsIsPresent(t *testing.T) {
	doc := mutate(t, "featureFlags:\n  newDashboard: false\n  dataExport: true\n", "featureFlags: {}\n")
	cfg, err := loadDoc(t, doc)
	require.NoError(t, err)
	assert.NotNil(t, cfg.FeatureFlags)
	assert.Empty(t, cfg.FeatureFlags)
}

func TestLoad_Locators(t *testing.T) {
	bundled := fstest.MapFS{
		"config.yml":        {Data: []byte(validYAML)},
		"nested/config.yml": {Data: []byte(validYAML)},
	}
	loader := NewLoader(WithBundled(bundled), WithLogger(quietLogger()))
	path := writeConfig(t, validYAML)

	for _, locator := range []string{
		"classpath:config.yml",
		"classpath:/config.yml",
		"classpath:nested/config.yml",
		"config.yml",
		"nested/config.yml",
		"file:" + path,
	} {
		t.Run(locator, func(t *testing.T) {
			cfg, err := loader.Load(locator)
			require.NoError(t, err)
			assert.Equal(t, "Test App", cfg.AppName)
		})
	}
}

func TestLoad_DefaultBundledResources(t *testing.T) {
	cfg, err := NewLoader(WithLogger(quietLogger())).Load(DefaultLocator)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.AppName)
	assert.NotEmpty(t, cfg.LabelVMMappings)
}

func TestLoad_PathMissing(t *testing.T) {
	loader := NewLoader(WithLogger(quietLogger()))
	for _, locator := range []string{"", "   "} {
		cfg, err := loader.Load(locator)
		assert.Nil(t, cfg)
		requireLoadError(t, err, ErrPathMissing)
		assert.Contains(t, err.Error(), "configuration path is not defined")
	}
}

func TestLoad_ResourceNotFound(t *testing.T) {
	loader := NewLoader(WithBundled(fstest.MapFS{
		"dir/config.yml": {Data: []byte(validYAML)},
	}), WithLogger(quietLogger()))

	tests := []struct {
		name     string
		locator  string
		notExist bool
	}{
		{name: "missing bundled resource", locator: "classpath:non-existent-config.yml", notExist: true},
		{name: "missing unprefixed resource", locator: "non-existent-config.yml", notExist: true},
		{name: "missing file", locator: "file:" + filepath.Join(t.TempDir(), "absent.yml"), notExist: true},
		{name: "bundled directory", locator: "classpath:dir"},
		{name: "file directory", locator: "file:" + t.TempDir()},
		{name: "scheme without path", locator: "file:"},
		{name: "escaping bundled path", locator: "classpath:../config.yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loader.Load(tt.locator)
			assert.Nil(t, cfg)
			le := requireLoadError(t, err, ErrResourceNotFound)
			assert.Equal(t, tt.locator, le.Locator)
			assert.Contains(t, err.Error(), tt.locator)
			if tt.notExist {
				assert.ErrorIs(t, err, fs.ErrNotExist)
			}
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed yaml", doc: "appName: [unterminated\nversion: 1\n"},
		{name: "type mismatch", doc: mutate(t, "  port: 9090\n", "  port: abc\n")},
		{name: "flag not boolean", doc: mutate(t, "  dataExport: true\n", "  dataExport: maybe\n")},
		{name: "unknown key", doc: "extra: true\n" + validYAML},
		{name: "unknown nested key", doc: mutate(t, "  defaultOs: test-os\n", "  defaultOs: test-os\n  color: blue\n")},
		{name: "invalid duration", doc: mutate(t, "  idleTimeout: PT15M\n", "  idleTimeout: fifteen minutes\n")},
		{name: "empty document", doc: ""},
		{name: "null document", doc: "~\n"},
		{name: "sequence root", doc: "- a\n- b\n"},
		{name: "mappings not a list", doc: mutate(t, "labelVmMappings:\n", "labelVmMappings: nope\nignored:\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadDoc(t, tt.doc)
			assert.Nil(t, cfg)
			le := requireLoadError(t, err, ErrParse)
			assert.NotNil(t, le.Err, "parse error should carry the diagnostic")
			assert.Contains(t, err.Error(), le.Locator)
			assert.Empty(t, le.Violations)
		})
	}
}

func TestLoad_MissingMaxSize(t *testing.T) {
	cfg, err := loadDoc(t, mutate(t, "  maxSize: 50\n", ""))
	assert.Nil(t, cfg)

	le := requireLoadError(t, err, ErrValidation)
	require.Len(t, le.Violations, 1)
	assert.Equal(t, "vmPool.maxSize", le.Violations[0].Path)
	assert.Equal(t, validate.MsgPresent, le.Violations[0].Message)
	assert.Equal(t, "config: invalid configuration: vmPool.maxSize must be present", err.Error())
}

func TestLoad_EmptyLabelMappings(t *testing.T) {
	base := validYAML[:strings.Index(validYAML, "labelVmMappings:")]
	for name, doc := range map[string]string{
		"empty sequence": base + "labelVmMappings: []\n",
		"absent":         base,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadDoc(t, doc)
			le := requireLoadError(t, err, ErrValidation)
			require.Len(t, le.Violations, 1)
			assert.Equal(t, "labelVmMappings", le.Violations[0].Path)
			assert.Equal(t, validate.MsgNotEmpty, le.Violations[0].Message)
		})
	}
}

func TestLoad_NestedPoolParameterPath(t *testing.T) {
	_, err := loadDoc(t, mutate(t, "      minimumWarmVms: 0\n", "      minimumWarmVms: -1\n"))
	le := requireLoadError(t, err, ErrValidation)
	require.Len(t, le.Violations, 1)
	assert.Equal(t, "labelVmMappings[1].poolParameters.minimumWarmVms", le.Violations[0].Path)
	assert.Equal(t, "cannot be negative", le.Violations[0].Message)
}

func TestLoad_AggregatesAllViolationsInOrder(t *testing.T) {
	doc := mutate(t,
		"appName: Test App\n", "appName: \"  \"\n",
		"  port: 9090\n", "",
		"      idleTimeout: PT1H\n", "",
		"    runnersPerVm: 3\n", "    runnersPerVm: 0\n",
		"featureFlags:\n  newDashboard: false\n  dataExport: true\n", "featureFlags:\n",
	)

	want := "appName must not be blank, " +
		"server.port must be present, " +
		"featureFlags must be present, " +
		"labelVmMappings[0].poolParameters.idleTimeout must be specified, " +
		"labelVmMappings[1].runnersPerVm must be at least 1"

	for i := 0; i < 3; i++ {
		_, err := loadDoc(t, doc)
		le := requireLoadError(t, err, ErrValidation)
		assert.Len(t, le.Violations, 5)
		assert.Equal(t, want, le.Violations.Error())
		assert.Equal(t, "config: invalid configuration: "+want, err.Error())

		var list validate.List
		require.True(t, errors.As(err, &list))
		assert.Len(t, list, 5)
	}
}

func TestLoad_LogsSummaryOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	loader := NewLoader(WithLogger(logger))

	_, err := loader.Load(SchemeFile + writeConfig(t, validYAML))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "configuration loaded", out["msg"])
	assert.Equal(t, "Test App", out["app_name"])
	assert.Equal(t, float64(2), out["label_mappings"])
	assert.Equal(t, Digest([]byte(validYAML)), out["config_digest"])

	buf.Reset()
	_, err = loader.Load(SchemeFile + writeConfig(t, mutate(t, "  maxSize: 50\n", "")))
	require.Error(t, err)
	assert.Empty(t, buf.String(), "failures are only logged at debug level")
}

func TestLoad_ReturnsIndependentSnapshots(t *testing.T) {
	loader := NewLoader(WithLogger(quietLogger()))
	locator := SchemeFile + writeConfig(t, validYAML)

	var wg sync.WaitGroup
	results := make([]*AppConfig, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = loader.Load(locator)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
	}
	results[0].FeatureFlags["dataExport"] = false
	*results[0].Server.Port = 1
	assert.True(t, results[1].FeatureFlags["dataExport"])
	assert.Equal(t, 9090, *results[1].Server.Port)
}

func TestLoadSnapshotDigest(t *testing.T) {
	loader := NewLoader(WithLogger(quietLogger()))
	locator := SchemeFile + writeConfig(t, validYAML)

	snap, err := loader.LoadSnapshot(locator)
	require.NoError(t, err)
	assert.Equal(t, locator, snap.Locator)
	assert.Len(t, snap.Digest, 64)

	digest, err := loader.DigestLocator(locator)
	require.NoError(t, err)
	assert.Equal(t, snap.Digest, digest)

	other, err := loader.DigestLocator(SchemeFile + writeConfig(t, validYAML+"# comment\n"))
	require.NoError(t, err)
	assert.NotEqual(t, snap.Digest, other)

	_, err = loader.DigestLocator("")
	assert.ErrorIs(t, err, ErrPathMissing)
}

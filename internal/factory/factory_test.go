package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(settings map[string]interface{}) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range settings {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateStore(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		wantErr  string
	}{
		{name: "memory", settings: map[string]interface{}{"store.type": "memory"}},
		{name: "sqlite", settings: map[string]interface{}{
			"store.type":        "sqlite",
			"store.sqlite_path": filepath.Join(t.TempDir(), "nested", "tracker.db"),
		}},
		{name: "unsupported", settings: map[string]interface{}{"store.type": "redis"}, wantErr: "unsupported store type: redis"},
		{name: "bad retention", settings: map[string]interface{}{"store.retention": "forever"}, wantErr: "store.retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStoreFactory(testConfig(tt.settings), zap.NewNop()).CreateStore()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer s.Stop()

			_, err = s.Stats(context.Background(), time.Now())
			assert.NoError(t, err)
		})
	}
}

func TestCreateSource(t *testing.T) {
	s, err := NewSourceFactory(testConfig(nil), zap.NewNop()).CreateSource(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewSourceFactory(testConfig(map[string]interface{}{"source.type": "imap"}), zap.NewNop()).
		CreateSource(context.Background())
	assert.ErrorContains(t, err, "unsupported source type: imap")

	_, err = NewSourceFactory(testConfig(map[string]interface{}{
		"source.type":            "gmail",
		"gmail.credentials_file": filepath.Join(t.TempDir(), "missing.json"),
	}), zap.NewNop()).CreateSource(context.Background())
	assert.Error(t, err)
}

func TestCreateIntake(t *testing.T) {
	f := NewIntakeFactory(testConfig(nil), zap.NewNop(), nil)
	assert.Nil(t, f.CreateIntake())

	f = NewIntakeFactory(testConfig(map[string]interface{}{"smtp.enabled": true}), zap.NewNop(), nil)
	assert.NotNil(t, f.CreateIntake())
}

func TestCreateClassifier(t *testing.T) {
	c, err := NewClassifierFactory(testConfig(map[string]interface{}{
		"classifier.precedence": []string{"rejection", "offer", "interview_tier1", "applied_subject", "interview_tier2", "applied", "follow_up", "direct"},
	}), zap.NewNop()).CreateClassifier()
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewClassifierFactory(testConfig(map[string]interface{}{
		"classifier.precedence": []string{"offer", "bogus"},
	}), zap.NewNop()).CreateClassifier()
	assert.ErrorContains(t, err, "invalid classifier.precedence")
}

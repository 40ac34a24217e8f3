package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		name    string
		project string
		topic   string
		want    string
	}{
		{name: "short id", project: "till-prod", topic: "settlement", want: "projects/till-prod/topics/settlement"},
		{name: "full resource", project: "other", topic: "projects/till-prod/topics/settlement", want: "projects/till-prod/topics/settlement"},
		{name: "blank topic", project: "till-prod", topic: "  ", want: ""},
		{name: "missing project", project: "", topic: "settlement", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, topicResourceName(tc.project, tc.topic))
		})
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{SettlementTopic: "settlement"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNewClientRequiresTopic(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "till-dev"}, config.PubSubConfig{SettlementTopic: " "}, nil)
	require.ErrorIs(t, err, errNoTopic)
}

func TestCredentialsPreferInlineJSON(t *testing.T) {
	assert.Empty(t, credentials(config.GCPConfig{}))
	assert.Len(t, credentials(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/etc/sa.json"}), 1)
	assert.Len(t, credentials(config.GCPConfig{ApplicationCredentials: "/etc/sa.json"}), 1)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("settlement"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

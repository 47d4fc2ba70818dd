package navigator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/camelotware/herald/internal/common"
)

func TestSearchURL(t *testing.T) {
	cfg := common.NewDefaultConfig().Herald
	svc := NewService(cfg, arbor.NewLogger())

	assert.Equal(t, "https://eden-daoc.net/itemsearch?s=Troll+Belt", svc.SearchURL("Troll Belt"))
	assert.Equal(t, "https://eden-daoc.net/itemsearch?s=Cudgel+of+the+Undead", svc.SearchURL("Cudgel of the Undead"))
}

func TestDetailURL(t *testing.T) {
	cfg := common.NewDefaultConfig().Herald
	svc := NewService(cfg, arbor.NewLogger())

	assert.Equal(t, "https://eden-daoc.net/item?id=10001", svc.DetailURL("10001"))
}

func TestLimiterDefaultsWhenUnset(t *testing.T) {
	cfg := common.NewDefaultConfig().Herald
	cfg.RequestsPerMin = 0
	svc := NewService(cfg, arbor.NewLogger())

	// First token is available immediately.
	assert.True(t, svc.limiter.Allow())
}

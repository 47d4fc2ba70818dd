package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/camelotware/herald/internal/models"
	"github.com/camelotware/herald/internal/services/session"
)

// BatchResult is the full outcome of a batch run. It is always produced,
// even when the run was cancelled partway, so a merge can still happen on
// what resolved.
type BatchResult struct {
	Resolved  []*models.ItemRecord
	Filtered  []models.FilteredItem
	Failed    map[string]string // item name -> failure description
	Cancelled bool
}

// batchFile is the YAML shape of a batch item list.
type batchFile struct {
	Items []string `yaml:"items"`
}

// LoadBatchFile reads a YAML item list:
//
//	items:
//	  - Cudgel of the Undead
//	  - Dragonseye Strand
func LoadBatchFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file %s: %w", path, err)
	}

	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}

	items := make([]string, 0, len(bf.Items))
	for _, name := range bf.Items {
		if name = strings.TrimSpace(name); name != "" {
			items = append(items, name)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batch file %s lists no items", path)
	}
	return items, nil
}

// ResolveBatch resolves a list of item names on one shared session.
// Cancellation is honored at item boundaries: the current item finishes,
// the rest are skipped, and the partial result is returned. Authentication
// and driver failures abort the batch; a single item failing to scrape is
// recorded and the run continues.
func (s *Service) ResolveBatch(ctx context.Context, itemNames []string, opts Options) (*BatchResult, error) {
	result := &BatchResult{
		Failed: make(map[string]string),
	}

	// Names already resolved in the cache never touch the site. The
	// session is only established once a scrape is actually needed.
	var pending []string
	for _, name := range itemNames {
		if cached := s.cachedVariants(name); len(cached) > 0 {
			result.Resolved = append(result.Resolved, cached...)
			continue
		}
		pending = append(pending, name)
	}

	if len(pending) == 0 {
		s.logger.Info().
			Int("items", len(itemNames)).
			Msg("Batch fully served from cache")
		return result, nil
	}

	jar, err := session.LoadCookieJar(s.config.Cookies.Path)
	if err != nil {
		return result, err
	}

	s.publish(opts.Progress, models.ProgressEvent{
		Stage: models.StageAuthenticating,
		Total: len(pending),
	})

	sess, err := s.sessions.EnsureAuthenticated(ctx, jar)
	if err != nil {
		return result, err
	}
	defer sess.Close()

	for i, name := range pending {
		if ctx.Err() != nil {
			result.Cancelled = true
			s.publish(opts.Progress, models.ProgressEvent{
				Stage:   models.StageCancelled,
				Current: i,
				Total:   len(pending),
			})
			return result, ctx.Err()
		}

		records, filtered, err := s.resolveWithSession(ctx, sess, name, opts)
		result.Resolved = append(result.Resolved, records...)
		result.Filtered = append(result.Filtered, filtered...)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Cancelled = true
				return result, err
			}
			if models.IsAuthenticationError(err) || errors.Is(err, models.ErrDriverInit) {
				return result, err
			}
			result.Failed[name] = err.Error()
			s.publish(opts.Progress, models.ProgressEvent{
				Stage:    models.StageFailed,
				ItemName: name,
				Message:  err.Error(),
			})
			s.logger.Warn().Err(err).Str("item", name).Msg("Item failed, continuing batch")
		}
	}

	s.logger.Info().
		Int("resolved", len(result.Resolved)).
		Int("filtered", len(result.Filtered)).
		Int("failed", len(result.Failed)).
		Msg("Batch resolve finished")

	return result, nil
}

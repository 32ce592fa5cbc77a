// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/domain"
)

var programCache = ttlcache.New(ttlcache.Options[string, *vm.Program]{}.SetDefaultTTL(10 * time.Minute))

// exprEnv exposes a torrent to filter expressions under its wire field names,
// e.g. `percentDone < 1 && rateDownload > 0`.
func exprEnv(t domain.Torrent) map[string]any {
	return map[string]any{
		"id":                  t.ID.String(),
		"name":                t.Name,
		"status":              int(t.Status),
		"state":               t.Status.String(),
		"queuePosition":       t.QueuePosition,
		"activityDate":        t.ActivityDate,
		"addedDate":           t.AddedDate,
		"doneDate":            t.DoneDate,
		"percentDone":         t.PercentDone,
		"uploadRatio":         t.UploadRatio,
		"totalSize":           t.TotalSize,
		"sizeWhenDone":        t.SizeWhenDone,
		"leftUntilDone":       t.LeftUntilDone,
		"eta":                 t.ETA,
		"isFinished":          t.IsFinished,
		"completed":           t.Completed(),
		"downloadDir":         t.DownloadDir,
		"peersSendingToUs":    t.PeersSendingToUs,
		"peersGettingFromUs":  t.PeersGettingFromUs,
		"webseedsSendingToUs": t.WebseedsSendingToUs,
		"rateDownload":        t.RateDownload,
		"rateUpload":          t.RateUpload,
	}
}

// CompileExpr compiles a boolean filter expression, reusing cached programs.
// A blank source yields a nil program, which Where treats as match all.
func CompileExpr(source string) (*vm.Program, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}
	if p, ok := programCache.Get(source); ok {
		return p, nil
	}
	program, err := expr.Compile(source, expr.Env(exprEnv(domain.Torrent{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	programCache.Set(source, program, ttlcache.DefaultTTL)
	return program, nil
}

// Where keeps torrents for which program evaluates to true. Evaluation
// errors drop the torrent rather than failing the listing.
func Where(torrents []domain.Torrent, program *vm.Program) []domain.Torrent {
	if program == nil {
		return torrents
	}
	return keep(torrents, func(t domain.Torrent) bool {
		result, err := expr.Run(program, exprEnv(t))
		if err != nil {
			log.Debug().Err(err).Str("torrent", t.Name).Msg("Failed to evaluate filter expression")
			return false
		}
		matched, ok := result.(bool)
		return ok && matched
	})
}

package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/chunkstore"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
)

// #region select-mode
// New picks the index mode once. Dense mode needs stored vectors, an encoder,
// and a probe query whose dimension matches the build; anything else falls
// back to lexical mode.
func New(ctx context.Context, build artifact.Build, store *chunkstore.Store, encoder embedding.Encoder, lexical LexicalConfig, log *zap.Logger) Index {
	if log == nil {
		log = zap.NewNop()
	}
	lex := func(reason string) Index {
		log.Info("using lexical retrieval", zap.String("reason", reason), zap.Int("chunks", store.Len()))
		return NewLexical(store, lexical)
	}

	if !build.HasVectors() {
		return lex("build has no vectors")
	}
	if encoder == nil {
		return lex("no encoder configured")
	}
	if build.Encoder != "" && build.Encoder != encoder.Name() {
		return lex("build encoded by " + build.Encoder + ", configured " + encoder.Name())
	}
	probe, err := encoder.EmbedQuery(ctx, "probe")
	if err != nil {
		log.Warn("encoder probe failed", zap.Error(err))
		return lex("encoder unavailable")
	}
	if len(probe) != build.Dimension {
		return lex("encoder dimension mismatch")
	}
	dense, err := NewDense(store, build.Vectors, encoder)
	if err != nil {
		log.Warn("dense index rejected", zap.Error(err))
		return lex("invalid vectors")
	}
	log.Info("using dense retrieval",
		zap.String("encoder", encoder.Name()),
		zap.Int("dimension", dense.Dimension()),
		zap.Int("chunks", store.Len()),
	)
	return dense
}

// #endregion select-mode

package dispatch

import (
	"context"
	"log/slog"

	"pagebot/internal/domain"
)

// retrievalState tracks the document pipeline. The machine is linear:
// metadata, content, processing, done; any failure is terminal.
type retrievalState int

const (
	stateMetadataPending retrievalState = iota
	stateContentPending
	stateProcessing
	stateDone
)

func (s retrievalState) String() string {
	switch s {
	case stateMetadataPending:
		return "metadata_pending"
	case stateContentPending:
		return "content_pending"
	case stateProcessing:
		return "processing"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// retrieveAndProcess runs the two-step download and hands the bytes to
// the content processor. A failed step stops the pipeline: no later step
// runs and no document-content reply is produced, only the generic error
// notice. The inbound request is still acknowledged upstream so the
// platform does not retry.
func (d *Dispatcher) retrieveAndProcess(ctx context.Context, log *slog.Logger, cls domain.Classification) domain.DispatchOutcome {
	state := stateMetadataPending
	desc, err := d.files.ResolveFile(ctx, cls.FileID)
	if err != nil {
		log.Error("file metadata lookup failed", "state", state.String(), "file_id", cls.FileID, "err", err)
		return domain.DispatchOutcome{Kind: domain.OutcomeError, ReplyText: replyError, Detail: err.Error()}
	}

	state = stateContentPending
	content, err := d.files.FetchFile(ctx, desc.RemotePath)
	if err != nil {
		log.Error("file download failed", "state", state.String(), "remote_path", desc.RemotePath, "err", err)
		return domain.DispatchOutcome{Kind: domain.OutcomeError, ReplyText: replyError, Detail: err.Error()}
	}

	state = stateProcessing
	log.Debug("processing document content", "state", state.String(), "bytes", len(content))
	summary := d.processor.Process(content)

	state = stateDone
	log.Info("document processed",
		"state", state.String(),
		"bytes", len(content),
		"words", summary.Words,
		"chars", summary.Chars,
	)
	return domain.DispatchOutcome{Kind: domain.OutcomeProcessedDocument, ReplyText: processedReply(summary)}
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/substrate/core"
	"github.com/poiesic/substrate/scrape"
)

// Reprocess replaces a document's chunks and vectors with ones derived
// from new content. The old vectors are deleted first and the deletion
// must be confirmed before any relational row is touched, so a crash or
// failure at any point leaves either the old state fully intact or the
// document parked in pending_deletion. The operation is idempotent:
// retrying a parked document picks up where the failed attempt stopped.
//
// When content is empty the document's URL is re-fetched; documents
// without a fetchable URL require explicit content.
func (o *Orchestrator) Reprocess(ctx context.Context, documentId core.ID, content string) error {
	doc, err := o.documents.GetDocument(ctx, documentId)
	if err != nil {
		return fmt.Errorf("loading document %d: %w", documentId, err)
	}
	kb, err := o.kbs.GetKnowledgeBase(ctx, doc.KnowledgeBaseId)
	if err != nil {
		return fmt.Errorf("loading knowledge base %d: %w", doc.KnowledgeBaseId, err)
	}

	if content == "" {
		content, err = o.refetch(ctx, doc)
		if err != nil {
			return err
		}
	}

	// Vector store first. Until this succeeds the relational rows stay
	// untouched, so the stored UIDs keep naming exactly the vectors
	// that still need deleting.
	if err := o.indexer.clearDocument(ctx, kb.Id, doc.Id); err != nil {
		if errors.Is(err, ErrVectorDeleteFailed) {
			if statusErr := o.documents.UpdateDocumentStatus(ctx, doc.Id, core.DocumentStatusPendingDeletion); statusErr != nil {
				o.logger.Warn("failed to park document", "documentId", doc.Id, "error", statusErr)
			}
			o.logger.Error("reprocess halted, vector deletion unconfirmed", "documentId", doc.Id, "error", err)
		}
		return err
	}

	if err := o.documents.UpdateDocumentStatus(ctx, doc.Id, core.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("marking document %d processing: %w", doc.Id, err)
	}

	embedder, err := o.factory(kb.Embedding)
	if err != nil {
		return fmt.Errorf("building embedder: %w", err)
	}

	count, err := o.indexer.indexDocument(ctx, kb, doc, embedder, content)
	if err != nil {
		if statusErr := o.documents.UpdateDocumentStatus(ctx, doc.Id, core.DocumentStatusFailed); statusErr != nil {
			o.logger.Warn("failed to mark document failed", "documentId", doc.Id, "error", statusErr)
		}
		return err
	}

	doc.Status = core.DocumentStatusCompleted
	doc.ChunkCount = count
	doc.CharCount = len(content)
	if err := o.documents.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("finalizing document %d: %w", doc.Id, err)
	}

	o.logger.Info("document reprocessed", "documentId", doc.Id, "chunks", count)
	return nil
}

// refetch re-scrapes a web document's URL for fresh content.
func (o *Orchestrator) refetch(ctx context.Context, doc *core.Document) (string, error) {
	if !strings.HasPrefix(doc.URL, "http://") && !strings.HasPrefix(doc.URL, "https://") {
		return "", fmt.Errorf("%w: document %d has no fetchable URL", ErrNoContent, doc.Id)
	}
	cfg := scrape.DefaultConfig()
	cfg.MaxPages = 1
	page, err := o.scraper.ScrapeSingle(ctx, doc.URL, cfg)
	if err != nil {
		return "", fmt.Errorf("refetching %s: %w", doc.URL, err)
	}
	return page.Content, nil
}

package service

import (
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/pipeline"
	"github.com/gofrs/uuid/v5"
)

func likesOf(kind model.TargetKind, targets []uuid.UUID) pipeline.Filter {
	return pipeline.Where(pipeline.Eq("target_kind", string(kind)), pipeline.InIDs("target_id", targets))
}

func byField(field string, v any) pipeline.Filter { return pipeline.Where(pipeline.Eq(field, v)) }

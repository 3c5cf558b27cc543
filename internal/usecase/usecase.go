package usecase

import "context"

type MatchUC interface {
	FindSimilar(ctx context.Context, req *MatchReq) (*MatchRes, error)
}

type CatalogUC interface {
	Seed(ctx context.Context, req *SeedReq) (*IngestReport, error)
	Reembed(ctx context.Context, req *ReembedReq) (*IngestReport, error)
}

package retrieval

import (
	"context"
	"fmt"
	"strconv"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/policydesk/policydesk/pkg/models"
)

// payload fields stored with each chunk at indexing time.
const (
	payloadText     = "text"
	payloadCategory = "category"
	payloadSource   = "source"
	payloadPage     = "page"
)

// QdrantRetriever implements Retriever against a Qdrant collection over
// gRPC. The query text is embedded with the configured Embedder, which
// must match the model used at indexing time.
//
// The client connection is long-lived and safe for concurrent searches.
type QdrantRetriever struct {
	conn       *grpc.ClientConn
	points     qdrant.PointsClient
	embedder   Embedder
	collection string
}

// QdrantConfig configures the Qdrant adapter.
type QdrantConfig struct {
	// Host is the Qdrant server host.
	Host string

	// Port is the Qdrant gRPC port (6334 by default deployment).
	Port int

	// Collection is the collection holding document chunks.
	Collection string
}

// NewQdrantRetriever connects to Qdrant and verifies the collection
// exists.
func NewQdrantRetriever(ctx context.Context, cfg QdrantConfig, embedder Embedder) (*QdrantRetriever, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	r := &QdrantRetriever{
		conn:       conn,
		points:     qdrant.NewPointsClient(conn),
		embedder:   embedder,
		collection: cfg.Collection,
	}
	if err := r.verifyCollection(ctx, qdrant.NewCollectionsClient(conn)); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *QdrantRetriever) verifyCollection(ctx context.Context, collections qdrant.CollectionsClient) error {
	resp, err := collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list qdrant collections: %w", err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == r.collection {
			return nil
		}
	}
	return fmt.Errorf("qdrant collection %q does not exist; run the indexer first", r.collection)
}

// Search implements Retriever.
func (r *QdrantRetriever) Search(ctx context.Context, req SearchRequest) ([]models.Fragment, error) {
	vector, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	search := &qdrant.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(req.Limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Include{
				Include: &qdrant.PayloadIncludeSelector{
					Fields: []string{payloadText, payloadCategory, payloadSource, payloadPage},
				},
			},
		},
	}
	if req.Category != "" {
		search.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: payloadCategory,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: req.Category},
						},
					},
				},
			}},
		}
	}

	resp, err := r.points.Search(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	frags := make([]models.Fragment, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		frags = append(frags, pointToFragment(point))
	}
	return frags, nil
}

// Close releases the gRPC connection.
func (r *QdrantRetriever) Close() error {
	return r.conn.Close()
}

func pointToFragment(point *qdrant.ScoredPoint) models.Fragment {
	frag := models.Fragment{
		ID:       pointID(point.GetId()),
		Distance: point.GetScore(),
		Metadata: make(map[string]string),
	}
	for key, val := range point.GetPayload() {
		switch key {
		case payloadText:
			frag.Content = val.GetStringValue()
		default:
			if s := val.GetStringValue(); s != "" {
				frag.Metadata[key] = s
			} else if n := val.GetIntegerValue(); n != 0 {
				frag.Metadata[key] = strconv.FormatInt(n, 10)
			}
		}
	}
	return frag
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service 按交易对并发聚合行情快照。
type Service struct {
	client *Client
	logger *zap.Logger
}

// NewService 创建行情快照服务。
func NewService(client *Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		logger: logger,
	}
}

// GetSnapshot 并发拉取给定交易对的最新行情。
// 单个交易对失败只记录日志并从快照中剔除，全部失败才返回错误。
func (s *Service) GetSnapshot(ctx context.Context, symbols []string) (Snapshot, error) {
	snapshot := Snapshot{
		Quotes:      make(map[string]TickerQuote, len(symbols)),
		RetrievedAt: time.Now().UTC(),
	}

	var mu sync.Mutex
	var firstErr error

	group, groupCtx := errgroup.WithContext(ctx)

	for _, symbol := range symbols {
		symbol := symbol
		group.Go(func() error {
			ticker, err := s.client.FetchTicker(groupCtx, symbol)
			if err != nil {
				s.logger.Warn("拉取行情失败，本轮剔除该交易对",
					zap.String("symbol", symbol),
					zap.Error(err),
				)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}

			mu.Lock()
			snapshot.Quotes[symbol] = ticker
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Snapshot{}, err
	}

	if len(snapshot.Quotes) == 0 {
		if firstErr != nil {
			return Snapshot{}, fmt.Errorf("quote: 所有交易对行情拉取失败: %w", firstErr)
		}
		return Snapshot{}, fmt.Errorf("quote: 行情快照为空")
	}

	s.logger.Debug("行情快照获取完成",
		zap.Time("retrieved_at", snapshot.RetrievedAt),
		zap.Int("quote_count", len(snapshot.Quotes)),
	)

	return snapshot, nil
}

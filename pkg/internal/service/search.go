package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
)

// SearchHistoryKey 搜索历史在 KV 中的键.
const SearchHistoryKey = "search/history"

const (
	smallFileBytes  = int64(10) << 20
	mediumFileBytes = int64(100) << 20
)

var dateWindows = map[string]time.Duration{
	"today": 24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
	"year":  365 * 24 * time.Hour,
}

// SearchService 在存储根路径下按名称搜索文件与文件夹.
type SearchService struct {
	store  ObjectStore
	kv     kv.KVStore
	root   string
	cfg    configs.SearchConfig
	clock  clockwork.Clock
	logger zerolog.Logger

	historyMu sync.Mutex
}

// NewSearchService 创建搜索服务，history 为 nil 时不记录搜索历史.
func NewSearchService(store ObjectStore, history kv.KVStore, root string, cfg configs.SearchConfig, clock clockwork.Clock) *SearchService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = configs.DefaultSearchMaxDepth
	}

	if cfg.MaxResults <= 0 {
		cfg.MaxResults = configs.DefaultSearchMaxResults
	}

	return &SearchService{
		store:  store,
		kv:     history,
		root:   root,
		cfg:    cfg,
		clock:  clock,
		logger: log.Component("search"),
	}
}

// Score 计算名称与搜索词的相关度，0 表示不匹配.
func Score(name, term string) int {
	name = strings.ToLower(name)
	term = strings.ToLower(strings.TrimSpace(term))

	switch {
	case term == "":
		return 0
	case name == term:
		return 100
	case strings.HasPrefix(name, term):
		return 80
	case strings.Contains(name, term):
		return 60
	}

	score := 0

	for _, w := range strings.Fields(term) {
		if strings.Contains(name, w) {
			score += 20
		}
	}

	return score
}

// Search 执行一次搜索并记录搜索词.
func (s *SearchService) Search(ctx context.Context, q *types.SearchQuery) (*types.SearchResponse, error) {
	term := strings.TrimSpace(q.Q)

	entries, err := s.walk(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	results := make([]types.SearchResult, 0)

	for _, e := range entries {
		score := Score(e.Name, term)
		if score == 0 || !s.matches(e, q, now) {
			continue
		}

		results = append(results, types.SearchResult{FileEntry: e, Score: score})
	}

	sortResults(results, q.Sort, q.Order)

	total := len(results)
	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}

	if err := s.remember(ctx, term); err != nil {
		s.logger.Warn().Err(err).Msg("save search history failed")
	}

	return &types.SearchResponse{Query: term, Total: total, Results: results}, nil
}

// matches 应用类型、日期与大小过滤；日期或大小过滤生效时不返回文件夹.
func (s *SearchService) matches(e types.FileEntry, q *types.SearchQuery, now time.Time) bool {
	switch q.Type {
	case "", "all":
	case "folders":
		if !e.IsDir {
			return false
		}
	default:
		if e.IsDir || string(e.Type) != q.Type {
			return false
		}
	}

	if w, ok := dateWindows[q.Date]; ok {
		if e.IsDir || now.Sub(e.LastModified) > w {
			return false
		}
	}

	switch q.Size {
	case "small":
		return !e.IsDir && e.Size <= smallFileBytes
	case "medium":
		return !e.IsDir && e.Size > smallFileBytes && e.Size <= mediumFileBytes
	case "large":
		return !e.IsDir && e.Size > mediumFileBytes
	}

	return true
}

func sortResults(rs []types.SearchResult, by, order string) {
	if order == "" {
		order = "desc"
		if by == "name" {
			order = "asc"
		}
	}

	compare := func(a, b types.SearchResult) int {
		switch by {
		case "name":
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "date":
			return a.LastModified.Compare(b.LastModified)
		case "size":
			return cmp.Compare(a.Size, b.Size)
		default:
			return cmp.Compare(a.Score, b.Score)
		}
	}

	slices.SortStableFunc(rs, func(a, b types.SearchResult) int {
		c := compare(a, b)
		if order == "desc" {
			c = -c
		}

		if c == 0 {
			c = cmp.Compare(a.Path, b.Path)
		}

		return c
	})
}

// walk 从根路径递归列出条目；子目录列举失败只跳过该目录.
func (s *SearchService) walk(ctx context.Context) ([]types.FileEntry, error) {
	var (
		mu  sync.Mutex
		out []types.FileEntry
	)

	var visit func(ctx context.Context, rel string, depth int) error

	visit = func(ctx context.Context, rel string, depth int) error {
		objs, err := s.store.List(ctx, s.root+rel, false)
		if err != nil {
			if depth == 0 {
				return fmt.Errorf("search %q: %w", rel, err)
			}

			s.logger.Warn().Err(err).Str("path", rel).Msg("skip folder")

			return nil
		}

		g, gctx := errgroup.WithContext(ctx)

		for _, o := range objs {
			e := types.FileEntry{
				Name:         baseName(o.Key),
				Path:         strings.TrimPrefix(o.Key, s.root),
				IsDir:        o.IsDir,
				Size:         o.Size,
				LastModified: o.LastModified,
				Type:         types.FileTypeFolder,
			}

			if !e.IsDir {
				if e.Name == FolderMarker {
					continue
				}

				e.Type = ClassifyFile(e.Name)
			}

			mu.Lock()
			out = append(out, e)
			mu.Unlock()

			if e.IsDir && depth+1 < s.cfg.MaxDepth {
				g.Go(func() error { return visit(gctx, e.Path, depth+1) })
			}
		}

		return g.Wait()
	}

	if err := visit(ctx, "", 0); err != nil {
		return nil, err
	}

	return out, nil
}

// History 返回最近的搜索词，最新的在前.
func (s *SearchService) History(ctx context.Context) ([]string, error) {
	if s.kv == nil {
		return []string{}, nil
	}

	data, err := s.kv.Get(ctx, SearchHistoryKey)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return []string{}, nil
		}

		return nil, err
	}

	var terms []string
	if err := sonic.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("decode search history: %w", err)
	}

	return terms, nil
}

// remember 把搜索词移到历史最前，去重并截断.
func (s *SearchService) remember(ctx context.Context, term string) error {
	if s.kv == nil || s.cfg.HistorySize <= 0 || term == "" {
		return nil
	}

	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	terms, err := s.History(ctx)
	if err != nil {
		return err
	}

	terms = slices.DeleteFunc(terms, func(t string) bool { return strings.EqualFold(t, term) })
	terms = append([]string{term}, terms...)

	if len(terms) > s.cfg.HistorySize {
		terms = terms[:s.cfg.HistorySize]
	}

	data, err := sonic.Marshal(terms)
	if err != nil {
		return err
	}

	return s.kv.Set(ctx, SearchHistoryKey, data, 0)
}

// Package cache 把目录快照（详情、首页）保存在 <root>/catalog/ 下，批量解析报告保存在 <root>/reports/ 下。
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/infra/fsx"
)

// Store 读写快照文件。ReadOnly=true 时拒绝写入。
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// homeSnapshot 是首页快照的文件格式。
type homeSnapshot struct {
	SavedAt time.Time       `json:"saved_at"`
	Page    domain.HomePage `json:"page"`
}

func (s Store) detailDir() string { return filepath.Join(s.Root, "catalog", "detail") }

// DetailPath 返回作品详情快照的路径。
func (s Store) DetailPath(id int) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("非法作品 ID：%d", id)
	}
	return filepath.Join(s.detailDir(), strconv.Itoa(id)+".json"), nil
}

// HomePath 返回首页快照的路径。
func (s Store) HomePath() string {
	return filepath.Join(s.Root, "catalog", "home.json")
}

// ReadDetail 读取详情快照；文件不存在时 ok=false。
func (s Store) ReadDetail(id int) (domain.Item, bool, error) {
	path, err := s.DetailPath(id)
	if err != nil {
		return domain.Item{}, false, err
	}
	var it domain.Item
	ok, err := readJSON(path, &it)
	return it, ok, err
}

func (s Store) WriteDetail(it domain.Item) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if _, err := s.DetailPath(it.ID); err != nil {
		return err
	}
	b, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(s.detailDir(), strconv.Itoa(it.ID)+".json", b)
}

// ReadHome 读取首页快照及其保存时间；文件不存在时 ok=false。
func (s Store) ReadHome() (domain.HomePage, time.Time, bool, error) {
	var snap homeSnapshot
	ok, err := readJSON(s.HomePath(), &snap)
	return snap.Page, snap.SavedAt, ok, err
}

func (s Store) WriteHome(hp domain.HomePage, savedAt time.Time) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	b, err := json.MarshalIndent(homeSnapshot{SavedAt: savedAt.UTC(), Page: hp}, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(s.HomePath()), filepath.Base(s.HomePath()), b)
}

// ReportPath 返回批量解析报告的路径（同一作品同一线路只保留最新一份）。
func (s Store) ReportPath(itemID, lineID int) string {
	return filepath.Join(s.Root, "reports", fmt.Sprintf("batch-%d-%d.json", itemID, lineID))
}

func (s Store) WriteReport(rep domain.BatchReport) (string, error) {
	if s.ReadOnly {
		return "", ErrReadOnly
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	b = append(b, '\n')
	path := s.ReportPath(rep.ItemID, rep.LineID)
	if err := fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), b); err != nil {
		return "", err
	}
	return path, nil
}

func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("快照损坏 %q：%w", path, err)
	}
	return true, nil
}

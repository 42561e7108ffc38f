package recorder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// TurnRow is one (session, episode, turn) snapshot for offline analysis.
// Coordinates follow the engine: (0,0) is bottom-left.
type TurnRow struct {
	SessionID  string `parquet:"session_id,dict"`
	ConfigName string `parquet:"config_name,dict"`
	Kind       string `parquet:"kind,dict"`
	Episode    int32  `parquet:"episode"`
	Turn       int32  `parquet:"turn"`
	Width      int32  `parquet:"width"`
	Height     int32  `parquet:"height"`
	Wrap       bool   `parquet:"wrap"`

	FoodX []int32 `parquet:"food_x"`
	FoodY []int32 `parquet:"food_y"`

	Snakes []SnakeRow `parquet:"snakes"`

	GameOver   bool  `parquet:"game_over"`
	BoardFull  bool  `parquet:"board_full"`
	RecordedAt int64 `parquet:"recorded_at"` // unix millis
}

// SnakeRow is a snake's body and this turn's outcome
type SnakeRow struct {
	ID        int32  `parquet:"id"`
	Alive     bool   `parquet:"alive"`
	Length    int32  `parquet:"length"`
	Score     int32  `parquet:"score"`
	Direction string `parquet:"direction,dict"`
	Outcome   string `parquet:"outcome,dict,optional"`
	Cause     string `parquet:"cause,dict,optional"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`
}

// NewTurnRow flattens a turn entry into its columnar form
func NewTurnRow(entry TurnEntry) TurnRow {
	row := TurnRow{
		SessionID:  entry.SessionID,
		Kind:       entry.Kind,
		Episode:    int32(entry.Episode),
		Turn:       int32(entry.Turn),
		RecordedAt: entry.RecordedAt.UnixMilli(),
	}

	outcomes := map[int]engine.SnakeResult{}
	if entry.Report != nil {
		for _, res := range entry.Report.Results {
			outcomes[res.SnakeID] = res
		}
	}

	st := entry.State
	if st == nil {
		return row
	}
	row.ConfigName = st.ConfigName
	row.Width = int32(st.Width)
	row.Height = int32(st.Height)
	row.Wrap = st.Wrap
	row.GameOver = st.GameOver
	row.BoardFull = st.BoardFull

	for _, p := range st.FoodPositions {
		row.FoodX = append(row.FoodX, int32(p.X))
		row.FoodY = append(row.FoodY, int32(p.Y))
	}

	for _, s := range st.Snakes {
		sr := SnakeRow{
			ID:        int32(s.ID),
			Alive:     s.IsAlive,
			Length:    int32(s.Length),
			Score:     int32(s.Score),
			Direction: s.Direction.String(),
			BodyX:     make([]int32, len(s.Body)),
			BodyY:     make([]int32, len(s.Body)),
		}
		for i, p := range s.Body {
			sr.BodyX[i] = int32(p.X)
			sr.BodyY[i] = int32(p.Y)
		}
		if res, ok := outcomes[s.ID]; ok {
			sr.Outcome = string(res.Outcome)
			sr.Cause = res.Cause
		}
		row.Snakes = append(row.Snakes, sr)
	}
	return row
}

// ParquetWriter streams TurnRows into a tmp file that is moved into
// outDir on Close. A writer that saw no rows leaves no file behind.
type ParquetWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TurnRow]
	rows   int
}

func NewParquetWriter(outDir string) (*ParquetWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("turns-%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TurnRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "snakegrid_turn_v1")

	return &ParquetWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(outDir, name),
		file:    f,
		writer:  w,
	}, nil
}

func (p *ParquetWriter) OutPath() string { return p.outPath }
func (p *ParquetWriter) Rows() int       { return p.rows }

func (p *ParquetWriter) WriteTurn(entry TurnEntry) error {
	if p.writer == nil {
		return fmt.Errorf("parquet writer is closed")
	}
	if _, err := p.writer.Write([]TurnRow{NewTurnRow(entry)}); err != nil {
		return err
	}
	p.rows++
	return nil
}

// Close finalizes the parquet footer and renames the file into place
func (p *ParquetWriter) Close() error {
	if p.writer == nil && p.file == nil {
		return nil
	}

	var closeErr, fileErr error
	if p.writer != nil {
		closeErr = p.writer.Close()
		p.writer = nil
	}
	if p.file != nil {
		_ = p.file.Sync()
		fileErr = p.file.Close()
		p.file = nil
	}
	if closeErr != nil {
		return fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close parquet file: %w", fileErr)
	}

	if p.rows == 0 {
		_ = os.Remove(p.tmpPath)
		return nil
	}
	if err := os.Rename(p.tmpPath, p.outPath); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// ReadParquet loads every row of a turn archive
func ReadParquet(path string) ([]TurnRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, err
	}

	reader := parquet.NewGenericReader[TurnRow](pf)
	defer reader.Close()

	rows := make([]TurnRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rows[:n], nil
}

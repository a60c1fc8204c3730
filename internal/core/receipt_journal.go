package core

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	goeen_log "github.com/eencloud/goeen/log"
)

// ReceiptJournal appends one jsonl entry per print attempt, carrying the
// exact bytes that went to the printer. Hourly files, rotated by size,
// so a disputed receipt can always be replayed from disk.
type ReceiptJournal struct {
	logDir    string
	maxSizeMB int64
	mutex     sync.Mutex
	logger    *goeen_log.Logger
}

func NewReceiptJournal(logDir string, maxSizeMB int64, logger *goeen_log.Logger) *ReceiptJournal {
	_ = os.MkdirAll(logDir, 0o755)
	return &ReceiptJournal{
		logDir:    logDir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
	}
}

// Record journals a single print attempt. printErr is nil on success.
func (j *ReceiptJournal) Record(saleID, transportName string, rendered []byte, printErr error) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"sale_id":   saleID,
		"transport": transportName,
		"receipt":   string(rendered),
		"printed":   printErr == nil,
	}
	if printErr != nil {
		entry["print_error"] = printErr.Error()
	}

	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	entryBytes = append(entryBytes, '\n')

	filename := j.getCurrentLogFile()
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open receipt journal: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err = file.Write(entryBytes); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}

	// Check if rotation is needed
	if err := j.checkRotation(filename); err != nil {
		j.logger.Warningf("Receipt journal rotation error: %v", err)
	}

	return nil
}

func (j *ReceiptJournal) getCurrentLogFile() string {
	return fmt.Sprintf("%s/receipts_%s.jsonl", j.logDir, time.Now().Format("20060102_15"))
}

func (j *ReceiptJournal) checkRotation(filename string) error {
	stat, err := os.Stat(filename)
	if err != nil {
		return err
	}

	sizeMB := stat.Size() / (1024 * 1024)
	if sizeMB >= j.maxSizeMB {
		return j.rotateLog(filename)
	}

	return nil
}

func (j *ReceiptJournal) rotateLog(filename string) error {
	timestamp := time.Now().Format("20060102_150405")

	rotatedFile := fmt.Sprintf("%s.rotated_%s", filename, timestamp)

	if err := os.Rename(filename, rotatedFile); err != nil {
		return fmt.Errorf("failed to rotate journal file: %w", err)
	}

	j.logger.Infof("Rotated receipt journal: %s -> %s", filename, rotatedFile)

	return nil
}

func (j *ReceiptJournal) GetStats() map[string]interface{} {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	currentFile := j.getCurrentLogFile()
	var currentSize int64
	if stat, err := os.Stat(currentFile); err == nil {
		currentSize = stat.Size()
	}

	return map[string]interface{}{
		"current_file":    currentFile,
		"current_size_mb": currentSize / (1024 * 1024),
		"max_size_mb":     j.maxSizeMB,
		"rotation_needed": currentSize >= (j.maxSizeMB * 1024 * 1024),
	}
}

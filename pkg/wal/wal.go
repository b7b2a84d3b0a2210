package wal

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀) - 適用於大多數檔案
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於私鑰、機密檔
	FileModePrivate fs.FileMode = 0600
)

// WAL 以 JSON lines 格式追加寫入的日誌檔
// 一行一筆紀錄，只追加不修改，重啟時可以逐筆重放
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR 讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	return &WAL{
		file: file,
		mu:   sync.Mutex{},
	}, nil
}

// Write 寫入一筆資料到 OS buffer
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return json.NewEncoder(w.file).Encode(v)
}

// Flush 強制刷入硬碟 (關鍵！)
func (w *WAL) Flush() error {
	return w.file.Sync()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	return w.file.Close()
}

// ReadAll 從頭讀取所有資料，逐筆呼叫 callback
// callback 接收一筆 json.RawMessage，這樣可以避免一次將所有資料載入記憶體
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
	return nil
}

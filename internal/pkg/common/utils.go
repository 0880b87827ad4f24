package common

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateID 生成以時間為前綴、隨機字串為後綴的識別碼
func GenerateID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix[:9]
}

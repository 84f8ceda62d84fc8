package handler

import (
	"net/http"

	"github.com/homiefindr/internal/config"
)

// ConfigHandler отдаёт публичные параметры конфигурации (например, кеш для клиента).
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// GetCacheConfig возвращает настройки кеша для клиента (без авторизации):
// сколько минут держать локальные списки объявлений до повторной загрузки.
func (h *ConfigHandler) GetCacheConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"ttl_minutes": h.cfg.Cache.TTLMinutes,
	})
}

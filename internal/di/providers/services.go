package providers

import (
	"github.com/samber/do/v2"

	"github.com/tsundokudragon/dragon-server/internal/config"
	"github.com/tsundokudragon/dragon-server/internal/logger"
	"github.com/tsundokudragon/dragon-server/internal/service"
	"github.com/tsundokudragon/dragon-server/internal/validation"
)

// ProvideBookService provides the book lifecycle service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, v, cfg.Battle.MaxRetries, log.Logger), nil
}

// ProvideBattleService provides the battle service.
func ProvideBattleService(i do.Injector) (*service.BattleService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBattleService(storeHandle.Store, v, cfg.Battle.MaxRetries, log.Logger), nil
}

// ProvideSkillService provides the skill service.
func ProvideSkillService(i do.Injector) (*service.SkillService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSkillService(storeHandle.Store, log.Logger), nil
}

package models

import "time"

const (
	StepMenu          = "menu"
	StepChooseService = "choose_service"
	StepChooseSlot    = "choose_slot"
	StepCollectName   = "collect_name"
	StepCollectPhone  = "collect_phone"
	StepConfirmPhone  = "confirm_phone"
)

const (
	// SessionTTL время жизни сессии звонка без активности
	SessionTTL = 30 * time.Minute

	// PendingTTL время жизни ссылки подтверждения
	PendingTTL = 20 * time.Minute

	// MaxSlots максимум предлагаемых слотов за один проход
	MaxSlots = 3

	// MaxPhoneAttempts попытки распознать номер до отката на caller ID
	MaxPhoneAttempts = 3

	// SlotMinNotice минимальный отступ от текущего момента для слота
	SlotMinNotice = 5 * time.Minute

	// SlotLookahead горизонт поиска свободных слотов
	SlotLookahead = 7 * 24 * time.Hour

	// PendingTokenBytes байты энтропии токена подтверждения
	PendingTokenBytes = 24
)

package models

import "time"

const (
	// DefaultTimeZone календарь, в котором считаются выходные, праздники и дни до услуги
	DefaultTimeZone = "Asia/Ho_Chi_Minh"

	// GasRefillFee доплата за заправку фреона, добавляется один раз на заказ
	GasRefillFee = 100_000

	// DrumRemovalFee доплата за разборку барабана, за каждую машину
	DrumRemovalFee = 100_000

	// DefaultCancelWindow минимальный запас до начала работ для отмены
	DefaultCancelWindow = 12 * time.Hour

	// DefaultMaxBookingDays насколько далеко вперед можно бронировать
	DefaultMaxBookingDays = 60

	// DefaultDraftTTL время жизни черновика бронирования
	DefaultDraftTTL = 24 * time.Hour

	// SubmitRateLimit количество отправок заказа в окне
	SubmitRateLimit = 5

	// SubmitRateWindow окно ограничения отправок заказа
	SubmitRateWindow = time.Minute

	// ServiceCacheTTL время жизни кэша тарифов услуги
	ServiceCacheTTL = 10 * time.Minute
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
	MonthLayout     = "2006-01"
)

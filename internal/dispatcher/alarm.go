package dispatcher

import (
	"fmt"

	"github.com/xiaoqiao/device-tools/internal/models"
)

// Alarm repeat types understood by the firmware.
const (
	RepeatOnce   = 0
	RepeatDaily  = 1
	RepeatWeekly = 2
)

// Named weekday presets, bitmask over weekday 0 (Sunday) to 6 (Saturday).
const (
	WorkdaysMask = 0b0111110 // Monday through Friday
	WeekendsMask = 0b1000001 // Saturday and Sunday
)

const alarmThingName = "Alarm"

// validateAlarmParams rejects malformed alarm parameters before any publish.
func validateAlarmParams(p models.AlarmParams) error {
	if p.AlarmID == "" {
		return fmt.Errorf("%w: missing alarm id", models.ErrInvalidArgument)
	}
	if p.RepeatType < RepeatOnce || p.RepeatType > RepeatWeekly {
		return fmt.Errorf("%w: repeat_type %d out of range", models.ErrInvalidArgument, p.RepeatType)
	}
	if p.Seconds < 0 {
		return fmt.Errorf("%w: negative seconds", models.ErrInvalidArgument)
	}
	if p.Hour < 0 || p.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", models.ErrInvalidArgument, p.Hour)
	}
	if p.Minute < 0 || p.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", models.ErrInvalidArgument, p.Minute)
	}
	if p.RepeatDays < 0 || p.RepeatDays > 0b1111111 {
		return fmt.Errorf("%w: repeat_days %d is not a weekday bitmask", models.ErrInvalidArgument, p.RepeatDays)
	}
	return nil
}

// DispatchAlarm validates the fixed SetAlarm parameter set and publishes it.
func (d *Dispatcher) DispatchAlarm(deviceID string, p models.AlarmParams) (string, error) {
	if err := validateAlarmParams(p); err != nil {
		return "", err
	}

	return d.Dispatch(deviceID, alarmThingName, "SetAlarm", map[string]interface{}{
		"id":          p.AlarmID,
		"repeat_type": p.RepeatType,
		"seconds":     p.Seconds,
		"hour":        p.Hour,
		"minute":      p.Minute,
		"repeat_days": p.RepeatDays,
	})
}

// DispatchCancelAlarm publishes a CancelAlarm command for one alarm.
func (d *Dispatcher) DispatchCancelAlarm(deviceID, alarmID string) (string, error) {
	if alarmID == "" {
		return "", fmt.Errorf("%w: missing alarm id", models.ErrInvalidArgument)
	}

	return d.Dispatch(deviceID, alarmThingName, "CancelAlarm", map[string]interface{}{
		"id": alarmID,
	})
}

// BuildQuickAlarm maps the simplified alarm vocabulary (once, daily, weekly,
// workdays, weekends) to the firmware's fixed parameter set.
func BuildQuickAlarm(alarmID, alarmType string, seconds, hour, minute int, weekdays []int) (models.AlarmParams, error) {
	p := models.AlarmParams{AlarmID: alarmID}

	switch alarmType {
	case "once":
		p.RepeatType = RepeatOnce
		p.Seconds = seconds
	case "daily":
		p.RepeatType = RepeatDaily
		p.Hour = hour
		p.Minute = minute
	case "weekly":
		p.RepeatType = RepeatWeekly
		p.Hour = hour
		p.Minute = minute
		for _, day := range weekdays {
			if day < 0 || day > 6 {
				return models.AlarmParams{}, fmt.Errorf("%w: weekday %d out of range", models.ErrInvalidArgument, day)
			}
			p.RepeatDays |= 1 << day
		}
	case "workdays":
		p.RepeatType = RepeatWeekly
		p.Hour = hour
		p.Minute = minute
		p.RepeatDays = WorkdaysMask
	case "weekends":
		p.RepeatType = RepeatWeekly
		p.Hour = hour
		p.Minute = minute
		p.RepeatDays = WeekendsMask
	default:
		return models.AlarmParams{}, fmt.Errorf("%w: unsupported alarm type %q", models.ErrInvalidArgument, alarmType)
	}

	return p, nil
}

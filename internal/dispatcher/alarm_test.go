package dispatcher_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xiaoqiao/device-tools/internal/dispatcher"
	"github.com/xiaoqiao/device-tools/internal/mocks"
	"github.com/xiaoqiao/device-tools/internal/models"
)

func TestBuildQuickAlarm_WeeklyBitmask(t *testing.T) {
	p, err := dispatcher.BuildQuickAlarm("a1", "weekly", 0, 7, 30, []int{1, 3, 5})

	assert.NoError(t, err)
	assert.Equal(t, dispatcher.RepeatWeekly, p.RepeatType)
	assert.Equal(t, 42, p.RepeatDays) // 0b0101010
	assert.Equal(t, 7, p.Hour)
	assert.Equal(t, 30, p.Minute)
}

func TestBuildQuickAlarm_Workdays(t *testing.T) {
	p, err := dispatcher.BuildQuickAlarm("a1", "workdays", 0, 7, 0, nil)

	assert.NoError(t, err)
	assert.Equal(t, dispatcher.RepeatWeekly, p.RepeatType)
	assert.Equal(t, 62, p.RepeatDays)
}

func TestBuildQuickAlarm_Weekends(t *testing.T) {
	p, err := dispatcher.BuildQuickAlarm("a1", "weekends", 0, 9, 0, nil)

	assert.NoError(t, err)
	assert.Equal(t, dispatcher.RepeatWeekly, p.RepeatType)
	assert.Equal(t, 65, p.RepeatDays)
}

func TestBuildQuickAlarm_Once(t *testing.T) {
	p, err := dispatcher.BuildQuickAlarm("a1", "once", 60, 0, 0, nil)

	assert.NoError(t, err)
	assert.Equal(t, dispatcher.RepeatOnce, p.RepeatType)
	assert.Equal(t, 60, p.Seconds)
}

func TestBuildQuickAlarm_InvalidWeekday(t *testing.T) {
	_, err := dispatcher.BuildQuickAlarm("a1", "weekly", 0, 7, 0, []int{1, 7})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestBuildQuickAlarm_UnknownType(t *testing.T) {
	_, err := dispatcher.BuildQuickAlarm("a1", "hourly", 0, 0, 0, nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestDispatchAlarm_ValidationBeforePublish(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	d, store := newDispatcher(client)

	cases := []models.AlarmParams{
		{AlarmID: "", RepeatType: 0},
		{AlarmID: "a1", RepeatType: 3},
		{AlarmID: "a1", RepeatType: 0, Seconds: -1},
		{AlarmID: "a1", RepeatType: 1, Hour: 24},
		{AlarmID: "a1", RepeatType: 1, Minute: 60},
		{AlarmID: "a1", RepeatType: 2, RepeatDays: 128},
	}
	for _, p := range cases {
		_, err := d.DispatchAlarm("dev-1", p)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	}

	assert.Equal(t, 0, store.Count())
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchAlarm_Payload(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("IsConnected").Return(true)

	var captured []byte
	client.On("Publish", "devices/dev-1/downlink", byte(2), false, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(3).([]byte)
		}).
		Return(&mocks.DoneToken{})

	d, _ := newDispatcher(client)

	_, err := d.DispatchAlarm("dev-1", models.AlarmParams{
		AlarmID:    "wake-up",
		RepeatType: dispatcher.RepeatWeekly,
		Hour:       7,
		Minute:     30,
		RepeatDays: dispatcher.WorkdaysMask,
	})
	assert.NoError(t, err)

	var envelope models.CommandEnvelope
	assert.NoError(t, json.Unmarshal(captured, &envelope))
	params := envelope.Commands[0].Parameters
	assert.Equal(t, "wake-up", params["id"])
	assert.Equal(t, float64(2), params["repeat_type"])
	assert.Equal(t, float64(62), params["repeat_days"])
}

func TestDispatchCancelAlarm(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("IsConnected").Return(true)

	var captured []byte
	client.On("Publish", "devices/dev-1/downlink", byte(2), false, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(3).([]byte)
		}).
		Return(&mocks.DoneToken{})

	d, _ := newDispatcher(client)

	_, err := d.DispatchCancelAlarm("dev-1", "wake-up")
	assert.NoError(t, err)

	var envelope models.CommandEnvelope
	assert.NoError(t, json.Unmarshal(captured, &envelope))
	assert.Equal(t, "CancelAlarm", envelope.Commands[0].Method)
	assert.Equal(t, "wake-up", envelope.Commands[0].Parameters["id"])

	_, err = d.DispatchCancelAlarm("dev-1", "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

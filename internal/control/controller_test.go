package control

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/dynamo"
	"github.com/san-kum/brazilnut/internal/scene"
)

type fakeClock struct {
	t, dt float64
}

func (c *fakeClock) Time() float64     { return c.t }
func (c *fakeClock) TimeStep() float64 { return c.dt }

// runUntil advances the clock one step at a time, invoking the controller
// after every advance, until the next step would pass end.
func runUntil(ctrl *PhaseController, clock *fakeClock, end float64) {
	for clock.t+clock.dt <= end {
		clock.t += clock.dt
		ctrl.Step(clock)
	}
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) OnTransition(e Event) { r.events = append(r.events, e) }

func (r *eventRecorder) ofKind(kind EventKind) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

var testSchedule = config.ScheduleConfig{
	StopFlow:      1.1,
	Amplitude:     2,
	PulseInterval: 0.5,
	KickStart:     1.5,
	StopKick:      4,
}

var _ = Describe("PhaseController", func() {
	Context("with mocked handles", func() {
		var (
			mockCtrl *gomock.Controller
			flow     *MockFlowControl
			floor    *MockVelocityControl
			ctrl     *PhaseController
			clock    *fakeClock
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			flow = NewMockFlowControl(mockCtrl)
			floor = NewMockVelocityControl(mockCtrl)

			var err error
			ctrl, err = New(testSchedule, flow, floor)
			Expect(err).NotTo(HaveOccurred())
			clock = &fakeClock{dt: 0.25}
		})

		It("should not touch the handles while filling", func() {
			runUntil(ctrl, clock, 0.75)

			Expect(ctrl.Phase()).To(Equal(Filling))
			Expect(ctrl.FlowShutOff()).To(BeFalse())
		})

		It("should shut off the flow once, on the straddling step", func() {
			flow.EXPECT().SetVolumeFlowRate(0.0).
				Do(func(float64) { Expect(clock.t).To(Equal(1.0)) }).
				Times(1)

			runUntil(ctrl, clock, 1.5)

			Expect(ctrl.FlowShutOff()).To(BeTrue())
			Expect(ctrl.Phase()).To(Equal(WaitingForKick))
		})

		It("should kick with alternating signs and then rest", func() {
			flow.EXPECT().SetVolumeFlowRate(0.0).Times(1)
			gomock.InOrder(
				floor.EXPECT().SetVelocity(dynamo.Vec3{Z: 2}),
				floor.EXPECT().SetVelocity(dynamo.Vec3{Z: -2}),
				floor.EXPECT().SetVelocity(dynamo.Vec3{Z: 2}),
				floor.EXPECT().SetVelocity(dynamo.Vec3{Z: -2}),
				floor.EXPECT().SetVelocity(dynamo.Vec3{Z: 2}),
				floor.EXPECT().SetVelocity(dynamo.Vec3{}).Times(5),
			)

			runUntil(ctrl, clock, 5.0)

			Expect(ctrl.KickCount()).To(Equal(5))
			Expect(ctrl.Phase()).To(Equal(Resting))
		})
	})

	Context("with scene handles", func() {
		var (
			sc    *scene.Scene
			ctrl  *PhaseController
			clock *fakeClock
			rec   *eventRecorder
		)

		build := func(sched config.ScheduleConfig, dt float64) {
			cfg := config.DefaultConfig()
			cfg.Schedule = sched
			sc = scene.NewBuilder(cfg).Build()

			var err error
			ctrl, err = New(sched, sc.Insertion, sc.Floor)
			Expect(err).NotTo(HaveOccurred())

			rec = &eventRecorder{}
			ctrl.AddObserver(rec)
			clock = &fakeClock{dt: dt}
		}

		BeforeEach(func() {
			build(testSchedule, 0.25)
		})

		It("should keep the flow at zero after the shutoff step", func() {
			initial := sc.Insertion.VolumeFlowRate()
			Expect(initial).To(BeNumerically(">", 0))

			for clock.t+clock.dt <= 5.0 {
				clock.t += clock.dt
				ctrl.Step(clock)
				if clock.t < 1.0 {
					Expect(sc.Insertion.VolumeFlowRate()).To(Equal(initial))
				} else {
					Expect(sc.Insertion.VolumeFlowRate()).To(Equal(0.0))
				}
			}

			Expect(rec.ofKind(FlowShutoff)).To(HaveLen(1))
		})

		It("should give the n-th kick the sign (-1)^n", func() {
			runUntil(ctrl, clock, 5.0)

			kicks := rec.ofKind(Kick)
			Expect(kicks).To(HaveLen(5))
			for n, e := range kicks {
				Expect(e.Kick).To(Equal(n))
				if n%2 == 0 {
					Expect(e.Velocity).To(Equal(2.0))
				} else {
					Expect(e.Velocity).To(Equal(-2.0))
				}
			}
		})

		It("should advance the threshold additively from where it was", func() {
			build(testSchedule, 0.375)

			runUntil(ctrl, clock, 3.375)

			kicks := rec.ofKind(Kick)
			Expect(kicks).To(HaveLen(4))

			times := make([]float64, len(kicks))
			for i, e := range kicks {
				times[i] = e.Time
				Expect(e.Threshold).To(Equal(testSchedule.KickStart + float64(i+1)*testSchedule.PulseInterval))
			}
			// 3.0 lands on the threshold and is skipped, so the fourth kick
			// comes a full step late instead of on a fixed grid.
			Expect(times).To(Equal([]float64{1.875, 2.25, 2.625, 3.375}))
			Expect(ctrl.Threshold()).To(Equal(3.5))
		})

		It("should not kick at or after the cutoff", func() {
			runUntil(ctrl, clock, 10.0)

			for _, e := range rec.ofKind(Kick) {
				Expect(e.Time).To(BeNumerically("<", testSchedule.StopKick))
			}
			Expect(ctrl.KickCount()).To(Equal(5))
			Expect(sc.Floor.Velocity()).To(Equal(dynamo.Vec3{}))
			Expect(rec.ofKind(Rest)).To(HaveLen(1))
			Expect(rec.ofKind(Rest)[0].Time).To(Equal(4.0))
		})

		It("should force zero velocity idempotently after the cutoff", func() {
			runUntil(ctrl, clock, 4.5)

			clock.t = 4.75
			for i := 0; i < 3; i++ {
				sc.Floor.SetVelocity(dynamo.Vec3{Z: 7})
				ctrl.Step(clock)
				Expect(sc.Floor.Velocity()).To(Equal(dynamo.Vec3{}))
				Expect(ctrl.Phase()).To(Equal(Resting))
			}
			Expect(rec.ofKind(Rest)).To(HaveLen(1))
		})

		It("should report kicking only on the kick step", func() {
			runUntil(ctrl, clock, 1.75)
			Expect(ctrl.Phase()).To(Equal(Kicking))

			runUntil(ctrl, clock, 2.0)
			Expect(ctrl.Phase()).To(Equal(WaitingForKick))
		})

		It("should let the shutoff step take precedence over a due kick", func() {
			sched := testSchedule
			sched.StopFlow = 1.6
			sched.KickStart = 1.4
			build(sched, 0.25)

			runUntil(ctrl, clock, 1.5)
			Expect(ctrl.FlowShutOff()).To(BeTrue())
			Expect(ctrl.KickCount()).To(Equal(0))

			runUntil(ctrl, clock, 1.75)
			Expect(ctrl.KickCount()).To(Equal(1))
			Expect(rec.ofKind(Kick)[0].Time).To(Equal(1.75))
		})

		It("should miss the shutoff when a step ends exactly on stop_flow", func() {
			sched := testSchedule
			sched.StopFlow = 1.0
			build(sched, 0.25)

			runUntil(ctrl, clock, 5.0)

			Expect(ctrl.FlowShutOff()).To(BeFalse())
			Expect(sc.Insertion.VolumeFlowRate()).To(Equal(config.DefaultFlowRate))
			Expect(rec.ofKind(FlowShutoff)).To(BeEmpty())
			Expect(ctrl.KickCount()).To(Equal(5))
		})

		It("should restore its initial state on reset", func() {
			runUntil(ctrl, clock, 5.0)
			ctrl.Reset()

			Expect(ctrl.KickCount()).To(Equal(0))
			Expect(ctrl.Threshold()).To(Equal(testSchedule.KickStart))
			Expect(ctrl.FlowShutOff()).To(BeFalse())
			Expect(ctrl.Phase()).To(Equal(Filling))
		})

		It("should expose its parameters", func() {
			runUntil(ctrl, clock, 2.0)

			params := ctrl.GetParams()
			Expect(params).To(HaveKeyWithValue("kick_count", 1.0))
			Expect(params).To(HaveKeyWithValue("kick_threshold", 2.0))
			Expect(params).To(HaveKeyWithValue("amplitude", 2.0))
		})
	})

	It("should reject missing handles", func() {
		sc := scene.NewBuilder(config.DefaultConfig()).Build()

		_, err := New(testSchedule, nil, sc.Floor)
		Expect(err).To(MatchError(dynamo.ErrMissingObject))

		_, err = New(testSchedule, sc.Insertion, nil)
		Expect(err).To(MatchError(dynamo.ErrMissingObject))
	})

	DescribeTable("event kind names",
		func(kind EventKind, name string) {
			Expect(kind.String()).To(Equal(name))
			parsed, ok := ParseEventKind(name)
			Expect(ok).To(BeTrue())
			Expect(parsed).To(Equal(kind))
		},
		Entry("shutoff", FlowShutoff, "flow_shutoff"),
		Entry("kick", Kick, "kick"),
		Entry("rest", Rest, "rest"),
	)
})

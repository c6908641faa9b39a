// Package lifecycle is the root of the host/content controller.
//
// A Controller wires the bridge, navigation, presentation and audio
// packages to a platform Shell and to OS signals. All state lives on one
// owner context, a Loop: every public method, bridge message and timer
// callback is queued there, so no two mutations interleave. Timers are
// time.AfterFunc callbacks that re-enter through the same queue.
//
// Typical wiring:
//
//	loop := lifecycle.NewLoop(logger)
//	ctrl, err := lifecycle.New(cfg, lifecycle.Deps{
//		Shell:      shell,
//		Surface:    splash,
//		Dispatcher: loop,
//	})
//	go loop.Run(ctx)
//	err = ctrl.Start()
package lifecycle

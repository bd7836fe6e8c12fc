package circuitbreaker_test

import (
	"fmt"

	"github.com/LerianStudio/lib-disposal/disposal/circuitbreaker"
	"github.com/LerianStudio/lib-disposal/disposal/log"
)

func ExampleBreaker_Execute() {
	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig(), log.NewNop())
	if err != nil {
		return
	}

	result, err := breaker.Execute(func() (any, error) {
		return "released", nil
	})

	fmt.Println(result, err == nil)
	fmt.Println(breaker.State())

	// Output:
	// released true
	// closed
}

func ExampleDo() {
	breaker, err := circuitbreaker.New(circuitbreaker.AggressiveConfig(), log.NewNop())
	if err != nil {
		return
	}

	handles, err := circuitbreaker.Do(breaker, func() (int, error) {
		return 3, nil
	})

	fmt.Println(handles, err == nil)

	// Output:
	// 3 true
}

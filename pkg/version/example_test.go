package version_test

import (
	"fmt"

	"github.com/matzehuels/wsbump/pkg/version"
)

func ExampleBump() {
	v := version.MustParse("0.3.1")

	fmt.Println(version.Bump(v, version.Major, version.UserInitiated))
	fmt.Println(version.Bump(v, version.Major, version.Derived))
	fmt.Println(version.WithPrerelease(version.Bump(v, version.Patch, version.Derived)))
	// Output:
	// 1.0.0
	// 0.4.0
	// 0.3.2-alpha
}

func ExampleMagnitudeOf() {
	fmt.Println(version.MagnitudeOf(version.MustParse("0.1.0"), version.MustParse("0.2.0")))
	fmt.Println(version.MagnitudeOf(version.MustParse("1.1.0"), version.MustParse("1.2.0")))
	// Output:
	// major
	// minor
}

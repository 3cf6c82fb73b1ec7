package mandel

// Region is a rectangular window into the complex plane.
type Region struct {
	ReMin, ReMax float64
	ImMin, ImMax float64
}

// Classic regions / landmarks in the Mandelbrot set.
// Pass one to the benchmark to render different parts of the set.
var (
	// FullSet – the whole set, the region every benchmark run defaults to
	FullSet = Region{
		ReMin: -2.5,
		ReMax: 1.0,
		ImMin: -1.0,
		ImMax: 1.0,
	}

	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	SeahorseValley = Region{
		ReMin: -0.8,
		ReMax: -0.7,
		ImMin: 0.05,
		ImMax: 0.15,
	}

	// Elephant Valley – large bulb with trunk-like tendrils
	ElephantValley = Region{
		ReMin: -1.85,
		ReMax: -1.75,
		ImMin: -0.10,
		ImMax: -0.02,
	}

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = Region{
		ReMin: -0.7435,
		ReMax: -0.7420,
		ImMin: 0.1310,
		ImMax: 0.1325,
	}

	// Triple Spiral – threefold symmetric spiral structure
	TripleSpiral = Region{
		ReMin: -0.7480,
		ReMax: -0.7450,
		ImMin: 0.0950,
		ImMax: 0.0980,
	}

	// Valley of the Dragon – deep, highly detailed spiral filaments
	ValleyOfTheDragon = Region{
		ReMin: -0.7400,
		ReMax: -0.7350,
		ImMin: 0.1800,
		ImMax: 0.1850,
	}

	// Minibrot in a Mini-Spiral – self-similar Mandelbrot copy inside a spiral arm
	MinibrotInMiniSpiral = Region{
		ReMin: -1.7390,
		ReMax: -1.7375,
		ImMin: -0.0235,
		ImMax: -0.0220,
	}
)

// Regions maps the landmark names accepted on the command line.
var Regions = map[string]Region{
	"full":     FullSet,
	"seahorse": SeahorseValley,
	"elephant": ElephantValley,
	"minibrot": SpiralMinibrot,
	"triple":   TripleSpiral,
	"dragon":   ValleyOfTheDragon,
	"spiral":   MinibrotInMiniSpiral,
}

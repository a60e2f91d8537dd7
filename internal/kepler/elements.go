package kepler

// Table holds mean elements for the major planets and Pluto, keyed by body
// name. Values are immutable; only the evaluation time varies.
var Table = map[string]Elements{
	"Mercury": {
		N: Term{48.3313, 3.24587e-5}, I: Term{7.0047, 5.0e-8}, W: Term{29.1241, 1.01444e-5},
		A: Term{0.387098, 0}, E: Term{0.205635, 5.59e-10}, M: Term{168.6562, 4.0923344368},
	},
	"Venus": {
		N: Term{76.6799, 2.4659e-5}, I: Term{3.3946, 2.75e-8}, W: Term{54.891, 1.38374e-5},
		A: Term{0.72333, 0}, E: Term{0.006773, -1.302e-9}, M: Term{48.0052, 1.6021302244},
	},
	// Earth is the Sun's geocentric orbit turned half a revolution.
	"Earth": {
		N: Term{0, 0}, I: Term{0, 0}, W: Term{282.9404 - 180, 4.70935e-5},
		A: Term{1.0, 0}, E: Term{0.016709, -1.151e-9}, M: Term{356.047, 0.9856002585},
	},
	"Mars": {
		N: Term{49.5574, 2.11081e-5}, I: Term{1.8497, -1.78e-8}, W: Term{286.5016, 2.92961e-5},
		A: Term{1.523688, 0}, E: Term{0.093405, 2.516e-9}, M: Term{18.6021, 0.5240207766},
	},
	"Jupiter": {
		N: Term{100.4542, 2.76854e-5}, I: Term{1.303, -1.557e-7}, W: Term{273.8777, 1.64505e-5},
		A: Term{5.20256, 0}, E: Term{0.048498, 4.469e-9}, M: Term{19.895, 0.0830853001},
	},
	"Saturn": {
		N: Term{113.6634, 2.3898e-5}, I: Term{2.4886, -1.081e-7}, W: Term{339.3939, 2.97661e-5},
		A: Term{9.55475, 0}, E: Term{0.055546, -9.499e-9}, M: Term{316.967, 0.0334442282},
	},
	"Uranus": {
		N: Term{74.0005, 1.3978e-5}, I: Term{0.7733, 1.9e-8}, W: Term{96.6612, 3.0565e-5},
		A: Term{19.18171, -1.55e-8}, E: Term{0.047318, 7.45e-9}, M: Term{142.5905, 0.011725806},
	},
	"Neptune": {
		N: Term{131.7806, 3.0173e-5}, I: Term{1.77, -2.55e-7}, W: Term{272.8461, -6.027e-6},
		A: Term{30.05826, 3.313e-8}, E: Term{0.008606, 2.15e-9}, M: Term{260.2471, 0.005995147},
	},
	"Pluto": {
		N: Term{110.30347, 0}, I: Term{17.14175, 0}, W: Term{113.76329, 0},
		A: Term{39.48168677, 0}, E: Term{0.24880766, 0}, M: Term{14.53, 0.0039757},
	},
}

// Lookup returns the elements for name and whether they exist.
func Lookup(name string) (Elements, bool) {
	el, ok := Table[name]
	return el, ok
}

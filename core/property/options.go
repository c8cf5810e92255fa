package property

type optFlag uint16

const (
	optDefault optFlag = 1 << iota
	optDefaultFunc
	optHelp
	optOverrideHelp
	optNotSerialized
	optReadonly
	optDatetime
	optTimedelta
	optStrings
	optUnits
)

const specOnly = optDatetime | optTimedelta | optStrings | optUnits

// Option configures a property declaration or an Override.
type Option func(*config)

type config struct {
	set        optFlag
	def        any
	defFunc    func() any
	help       string
	serialized bool
	readonly   bool

	strings      StringPolicy
	unitsDefault string
}

func newConfig(opts []Option) *config {
	c := &config{serialized: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithDefault sets a fixed default. Container defaults are copied into each
// instance on first read.
func WithDefault(v any) Option {
	return func(c *config) {
		c.set |= optDefault
		c.def = v
	}
}

// WithDefaultFunc sets a default producer, invoked once per instance.
func WithDefaultFunc(fn func() any) Option {
	return func(c *config) {
		c.set |= optDefaultFunc
		c.defFunc = fn
	}
}

func WithHelp(help string) Option {
	return func(c *config) {
		c.set |= optHelp
		c.help = help
	}
}

// OverrideHelp replaces the inherited help text in an Override.
func OverrideHelp(help string) Option {
	return func(c *config) {
		c.set |= optOverrideHelp
		c.help = help
	}
}

// NotSerialized keeps the property out of wire output.
func NotSerialized() Option {
	return func(c *config) {
		c.set |= optNotSerialized
		c.serialized = false
	}
}

// Readonly rejects ordinary assignment; wire updates still apply.
func Readonly() Option {
	return func(c *config) {
		c.set |= optReadonly
		c.readonly = true
	}
}

// AcceptDatetime extends a spec's value validator with Datetime.
func AcceptDatetime() Option {
	return func(c *config) { c.set |= optDatetime }
}

// AcceptTimedelta extends a spec's value validator with Timedelta.
func AcceptTimedelta() Option {
	return func(c *config) { c.set |= optTimedelta }
}

// WithStrings overrides how a spec interprets bare strings.
func WithStrings(p StringPolicy) Option {
	return func(c *config) {
		c.set |= optStrings
		c.strings = p
	}
}

// WithUnitsDefault overrides the default of a units spec's companion.
func WithUnitsDefault(units string) Option {
	return func(c *config) {
		c.set |= optUnits
		c.unitsDefault = units
	}
}

package schema

// Chain lists the families tried for an untyped .pb or .yaml file, in priority order.
func Chain() []*Variant {
	return []*Variant{CimDev(), CimProg(), ONNX()}
}

// ByName looks a family up by its name.
func ByName(name string) (*Variant, bool) {
	for _, v := range Chain() {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

package models

// All returns every model the service migrates, parents first.
func All() []interface{} {
	return []interface{}{
		&FabricType{},
		&Layout{},
		&LayoutItem{},
		&FabricPiece{},
		&Plan{},
		&PlanOrder{},
		&PlanItem{},
	}
}

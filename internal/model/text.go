package model

// Categorical enums marshal as their names so JSON output stays readable.

func (p Protocol) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Protocol) UnmarshalText(b []byte) error {
	v, err := ParseProtocol(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (s Service) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Service) UnmarshalText(b []byte) error {
	v, err := ParseService(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (a AttackCategory) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AttackCategory) UnmarshalText(b []byte) error {
	v, err := ParseAttackCategory(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

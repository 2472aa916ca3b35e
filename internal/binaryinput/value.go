package binaryinput

import "github.com/sweeney/bi-sensor/internal/bacnet"

// applyPolarity converts between the raw and the observable value. The
// transform is its own inverse.
func applyPolarity(v bacnet.BinaryPV, p bacnet.Polarity) bacnet.BinaryPV {
	if p != bacnet.PolarityNormal {
		return v.Invert()
	}
	return v
}

func (e *entry) presentValue() bacnet.BinaryPV {
	return applyPolarity(e.rawValue, e.polarity)
}

func (e *entry) setPresentValue(v bacnet.BinaryPV) {
	e.setRawValue(applyPolarity(v, e.polarity))
}

func (e *entry) setRawValue(raw bacnet.BinaryPV) {
	if e.rawValue != raw {
		e.changed = true
	}
	e.rawValue = raw
}

func (e *entry) setOutOfService(v bool) {
	if e.outOfService != v {
		e.changed = true
	}
	e.outOfService = v
}

// PresentValue returns the observable value of instance: the raw value
// after polarity. Unknown instances read as INACTIVE.
func (o *Object) PresentValue(instance uint32) bacnet.BinaryPV {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.lookup(instance)
	if !ok {
		return bacnet.BinaryInactive
	}
	return e.presentValue()
}

// SetPresentValue stores v as the observable value of instance, undoing
// polarity to get the raw value. The COV flag is set when the raw value
// changes. It returns false for unknown instances.
func (o *Object) SetPresentValue(instance uint32, v bacnet.BinaryPV) bool {
	if v > bacnet.MaxBinaryPV {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.lookup(instance)
	if !ok {
		return false
	}
	e.setPresentValue(v)
	return true
}

// UpdateInput latches a reading from the physical input. Readings are
// ignored while the instance is out of service. It returns true when the
// reading was stored.
func (o *Object) UpdateInput(instance uint32, raw bacnet.BinaryPV) bool {
	if raw > bacnet.MaxBinaryPV {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.lookup(instance)
	if !ok || e.outOfService {
		return false
	}
	e.setRawValue(raw)
	return true
}

// OutOfService reports whether instance is out of service.
func (o *Object) OutOfService(instance uint32) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.lookup(instance)
	return ok && e.outOfService
}

// SetOutOfService sets the out-of-service flag, marking a change of value
// when it flips.
func (o *Object) SetOutOfService(instance uint32, v bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.lookup(instance)
	if !ok {
		return false
	}
	e.setOutOfService(v)
	return true
}

// Polarity returns the polarity of instance. Unknown instances read as normal.
func (o *Object) Polarity(instance uint32) bacnet.Polarity {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.lookup(instance)
	if !ok {
		return bacnet.PolarityNormal
	}
	return e.polarity
}

// SetPolarity changes the polarity of instance. The raw value is kept, so
// the present value flips, but the COV flag is left alone.
func (o *Object) SetPolarity(instance uint32, p bacnet.Polarity) bool {
	if p >= bacnet.MaxPolarity {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.lookup(instance)
	if !ok {
		return false
	}
	e.polarity = p
	return true
}

// Name returns the object name of instance.
func (o *Object) Name(instance uint32) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.lookup(instance)
	if !ok {
		return "", false
	}
	return e.name, true
}

// SetName replaces the object name. It returns true only when the stored
// name changed. Uniqueness across the device is the caller's concern.
func (o *Object) SetName(instance uint32, name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.lookup(instance)
	if !ok || e.name == name {
		return false
	}
	e.name = name
	return true
}
